package cli

import (
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/famomatic/yledl/client"
	"github.com/famomatic/yledl/internal/selector"
)

// streamAction is what is done with a resolved stream.
type streamAction int

const (
	actionDownload streamAction = iota
	actionPipe
	actionShowURL
	actionShowTitle
	actionShowEpisodePage
	actionShowMetadata
)

func (o *options) run(cmd *cobra.Command, args []string) error {
	o.setLogLevel()

	var urlArg string
	if len(args) > 0 {
		urlArg = args[0]
	}
	urls, err := client.ReadURLs(urlArg, o.inputFile)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		o.exitCode = int(client.ExitSuccess)
		return cmd.Help()
	}

	backends := selector.ParseBackends(o.backend, logrus.StandardLogger())
	if len(backends) == 0 {
		logrus.Error("No valid backends given with --backend")
		o.exitCode = int(client.ExitFailed)
		return nil
	}

	template, preferFormat := splitTemplateExtension(o.outputTemplate, o.preferFormat)
	c, err := client.New(client.Config{
		Proxy:          o.proxy,
		OutputTemplate: template,
		Logger:         logrus.StandardLogger(),
	})
	if err != nil {
		return err
	}

	action := o.action()
	clientOpts := o.clientOptions(backends, preferFormat)

	overall := client.ExitSuccess
	for i, url := range urls {
		if len(urls) > 1 {
			logrus.Info("")
			logrus.Infof("Now downloading from URL %d/%d: %s", i+1, len(urls), url)
		}
		if res := o.executeAction(cmd, c, action, url, clientOpts); res != client.ExitSuccess {
			overall = res
		}
	}
	o.exitCode = int(overall)
	return nil
}

func (o *options) executeAction(cmd *cobra.Command, c *client.Client, action streamAction, url string, opts client.Options) client.ExitCode {
	ctx := cmd.Context()
	switch action {
	case actionShowURL:
		printLines(cmd, c.StreamURLs(ctx, url, opts))
		return client.ExitSuccess
	case actionShowTitle:
		printLines(cmd, c.Titles(ctx, url, opts))
		return client.ExitSuccess
	case actionShowEpisodePage:
		printLines(cmd, c.EpisodePages(ctx, url, opts))
		return client.ExitSuccess
	case actionShowMetadata:
		metadata, err := c.MetadataJSON(ctx, url, opts)
		if err != nil {
			logrus.Error(err)
			return client.ExitFailed
		}
		cmd.Println(string(metadata))
		return client.ExitSuccess
	case actionPipe:
		return c.Pipe(ctx, url, opts)
	default:
		return c.Download(ctx, url, opts)
	}
}

func (o *options) action() streamAction {
	switch {
	case o.showURL:
		return actionShowURL
	case o.showTitle:
		return actionShowTitle
	case o.showEpisodePage:
		return actionShowEpisodePage
	case o.showMetadata:
		return actionShowMetadata
	case o.pipe || o.outputFile == "-":
		return actionPipe
	default:
		return actionDownload
	}
}

func (o *options) clientOptions(backends []string, preferFormat string) client.Options {
	logger := logrus.StandardLogger()

	opts := client.DefaultOptions()
	opts.OutputFilename = o.outputFile
	opts.PreferredFormat = preferFormat
	opts.DestDir = o.destDir
	opts.CreateDirs = o.createDirs && !o.noCreateDirs
	opts.Resume = !o.noResume
	opts.NoOverwrite = o.noOverwrite
	opts.StartPosition = o.startPosition
	opts.Duration = o.duration
	opts.Ratelimit = o.ratelimit
	opts.MaxHeight = selector.ParseResolution(o.resolution, logger)
	opts.MaxBitrate = selector.ParseMaxBitrate(o.maxBitrate, logger)
	opts.Backends = backends
	opts.LatestOnly = o.latestEpisode
	opts.SubLang = o.subLang
	opts.MetadataLanguage = o.metadataLang
	opts.ExcludeChars = o.excludeChars()
	opts.PostprocessCmd = o.postprocess
	opts.Xattr = o.xattrs
	opts.FfmpegBinary = o.ffmpeg
	opts.FfprobeBinary = o.ffprobe
	opts.WgetBinary = o.wget
	return opts
}

// excludeChars returns the characters to strip from file names according
// to the restrict-filename flags.
func (o *options) excludeChars() string {
	chars := "*/|"
	if o.noSpecials || o.vfat {
		chars = "\\\"*/:<>?|"
	}
	if o.noSpaces {
		chars += " "
	}
	return chars
}

// splitTemplateExtension separates a file extension from the output
// template. An extension in the template overrides --preferformat.
func splitTemplateExtension(template, preferFormat string) (string, string) {
	ext := filepath.Ext(template)
	if ext == "" {
		return template, preferFormat
	}
	return strings.TrimSuffix(template, ext), strings.TrimPrefix(ext, ".")
}

func (o *options) setLogLevel() {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
	})

	verbosity := o.verbose - o.quiet
	if o.debug {
		verbosity = 1
	}
	switch {
	case verbosity <= -2:
		logrus.SetLevel(logrus.ErrorLevel)
	case verbosity == -1:
		logrus.SetLevel(logrus.WarnLevel)
	case verbosity == 0:
		logrus.SetLevel(logrus.InfoLevel)
	case verbosity == 1:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.TraceLevel)
	}
}

func printLines(cmd *cobra.Command, lines []string) {
	for _, line := range lines {
		cmd.Println(line)
	}
}
