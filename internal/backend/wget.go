package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/famomatic/yledl/internal/httpx"
	"github.com/famomatic/yledl/internal/types"
)

// Some servers require a browser-like user agent, see issue #206 in the
// upstream tracker.
const spoofedUserAgent = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:67.0) " +
	"Gecko/20100101 Firefox/67.0"

// wget exit codes that indicate errors where retrying might help.
const (
	wgetExitFileIO  = 3
	wgetExitNetwork = 4
)

// WgetBackend downloads a plain HTTP file with wget.
type WgetBackend struct {
	url          string
	ext          types.FileExtension
	errorMessage string
	logger       logrus.FieldLogger
}

// NewWgetBackend returns a wget downloader for a direct media URL. The
// file extension is mandatory because it is determined by the remote file.
func NewWgetBackend(url, fileExtension string, logger logrus.FieldLogger) *WgetBackend {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if fileExtension == "" {
		logger.WithField("url", url).Warn("Mandatory file extension is missing")
	}
	return &WgetBackend{
		url:    url,
		ext:    types.FileExtension{Extension: fileExtension, Mandatory: true},
		logger: logger,
	}
}

func (b *WgetBackend) Name() string         { return types.BackendWget }
func (b *WgetBackend) IsValid() bool        { return true }
func (b *WgetBackend) ErrorMessage() string { return b.errorMessage }
func (b *WgetBackend) StreamURL() string    { return b.url }

func (b *WgetBackend) Capabilities() types.IOCapability {
	return types.CapResume | types.CapRatelimit | types.CapProxy
}

func (b *WgetBackend) FileExtension(preferred string) types.FileExtension {
	return b.ext
}

func (b *WgetBackend) SaveStream(ctx context.Context, outputName string, clip *types.Clip, io *types.IOContext) (types.RDCode, error) {
	warnOnUnsupportedResume(b.Capabilities(), outputName, io, b.logger)

	if clip != nil {
		b.downloadExternalSubtitles(ctx, clip.Subtitles, outputName, io)
	}

	res, err := b.run(ctx, b.buildArgs(outputName, io), io)
	if err != nil {
		return res, err
	}
	if res != types.RDSuccess && !logrus.IsLevelEnabled(logrus.WarnLevel) {
		b.logger.Error("wget failed! Increase verbosity to see more details.")
	}
	return res, nil
}

func (b *WgetBackend) Pipe(ctx context.Context, io *types.IOContext) (types.RDCode, error) {
	args := append(b.sharedArgs("-", io), b.url)
	return b.run(ctx, args, io)
}

func (b *WgetBackend) FullStreamAlreadyDownloaded(filename string, clip *types.Clip, io *types.IOContext) bool {
	return false
}

// run executes wget and converts the transient wget exit codes into a
// TransientError so that the caller can retry.
func (b *WgetBackend) run(ctx context.Context, args []string, io *types.IOContext) (types.RDCode, error) {
	res, err := runCommands(ctx, [][]string{args}, b.extraEnvironment(io), b.logger)
	if err != nil {
		switch subprocessExitCode(err) {
		case wgetExitFileIO:
			return types.RDFailed, &types.TransientError{Message: "wget: File I/O error"}
		case wgetExitNetwork:
			return types.RDFailed, &types.TransientError{Message: "wget: Network failure"}
		case -1:
			return res, err
		default:
			return types.RDFailed, nil
		}
	}
	return res, nil
}

// downloadExternalSubtitles fetches subtitles over HTTP because a plain
// file download has no embedded subtitle streams.
func (b *WgetBackend) downloadExternalSubtitles(ctx context.Context, subtitles []types.Subtitle, videoFileName string, io *types.IOContext) {
	if io.Subtitles == "none" || len(subtitles) == 0 {
		return
	}

	var selected *types.Subtitle
	if io.Subtitles == "all" {
		selected = &subtitles[0]
		for i := range subtitles {
			if subtitles[i].Lang == "fin" {
				selected = &subtitles[i]
				break
			}
		}
	} else {
		for i := range subtitles {
			if subtitles[i].Lang == io.Subtitles {
				selected = &subtitles[i]
				break
			}
		}
	}
	if selected == nil {
		return
	}

	b.logger.WithField("lang", selected.Lang).Debug("downloading subtitles")
	base := strings.TrimSuffix(videoFileName, filepath.Ext(videoFileName))
	destination := base + ".srt"

	client, err := httpx.New(httpx.Options{Proxy: io.Proxy, Logger: b.logger})
	if err == nil {
		err = client.DownloadToFile(ctx, selected.URL, destination)
	}
	if err != nil {
		b.logger.WithField("url", selected.URL).WithError(err).Warn("failed to download subtitles")
	}
}

func (b *WgetBackend) buildArgs(outputName string, io *types.IOContext) []string {
	args := b.sharedArgs(outputName, io)
	args = append(args, "--progress=bar", "--tries=1", "--random-wait")
	if !logrus.IsLevelEnabled(logrus.WarnLevel) {
		// wget has no mode that shows errors but silences everything
		// else; the exit status check in SaveStream compensates.
		args = append(args, "--quiet")
	} else if !logrus.IsLevelEnabled(logrus.InfoLevel) {
		args = append(args, "--no-verbose")
	}
	if io.Resume {
		args = append(args, "--continue")
	}
	if io.DownloadLimits.Ratelimit > 0 {
		args = append(args, fmt.Sprintf("--limit-rate=%dk", io.DownloadLimits.Ratelimit))
	}
	return append(args, b.url)
}

func (b *WgetBackend) sharedArgs(outputFilename string, io *types.IOContext) []string {
	return []string{
		io.WgetBinary,
		"-O", outputFilename,
		"--no-use-server-timestamps",
		"--user-agent=" + spoofedUserAgent,
		"--header", "X-Forwarded-For: " + io.XForwardedFor,
		"--timeout=20",
	}
}

func (b *WgetBackend) extraEnvironment(io *types.IOContext) []string {
	if io.Proxy == "" {
		return nil
	}
	if _, exists := os.LookupEnv("https_proxy"); exists {
		b.logger.Warn("--proxy ignored because https_proxy environment variable exists")
		return nil
	}
	return []string{"https_proxy=" + io.Proxy}
}

var (
	_ types.Backend = (*WgetBackend)(nil)
	_ types.Backend = (*DASHHLSBackend)(nil)
	_ types.Backend = (*HLSAudioBackend)(nil)
)
