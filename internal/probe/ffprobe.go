// Package probe inspects streams and downloaded files with ffprobe.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/famomatic/yledl/internal/types"
)

// ProgramsDocument is the ffprobe -show_programs output.
type ProgramsDocument struct {
	Programs []Program `json:"programs"`
}

type Program struct {
	ProgramID int `json:"program_id"`
	Tags      struct {
		VariantBitrate string `json:"variant_bitrate"`
	} `json:"tags"`
	Streams []ProgramStream `json:"streams"`
}

type ProgramStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// VariantBitrate returns the advertised bitrate of the program variant in
// bits per second, or zero when unknown.
func (p Program) VariantBitrate() int {
	bitrate, _ := strconv.Atoi(p.Tags.VariantBitrate)
	return bitrate
}

// HasVideoAndAudio reports whether the program carries both a video and an
// audio stream.
func (p Program) HasVideoAndAudio() bool {
	var video, audio bool
	for _, s := range p.Streams {
		switch s.CodecType {
		case "video":
			video = true
		case "audio":
			audio = true
		}
	}
	return video && audio
}

// Ffprobe runs the ffprobe binary against URLs and local files.
type Ffprobe struct {
	binary        string
	xForwardedFor string
	logger        logrus.FieldLogger
}

// NewFfprobe returns a prober that runs the named ffprobe binary.
func NewFfprobe(binary, xForwardedFor string, logger logrus.FieldLogger) *Ffprobe {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Ffprobe{binary: binary, xForwardedFor: xForwardedFor, logger: logger}
}

// ShowProgramsForURL probes the program variants available in a manifest.
func (f *Ffprobe) ShowProgramsForURL(ctx context.Context, url string) (*ProgramsDocument, error) {
	args := []string{
		"-v", "error",
		"-show_programs",
		"-print_format", "json=c=1",
		"-strict", "experimental",
		"-probesize", "80000000",
	}
	if f.xForwardedFor != "" {
		args = append(args, "-headers", fmt.Sprintf("X-Forwarded-For: %s\r\n", f.xForwardedFor))
	}
	args = append(args, "-i", url)

	output, err := exec.CommandContext(ctx, f.binary, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("stream probing failed: %w", err)
	}
	var doc ProgramsDocument
	if err := json.Unmarshal(output, &doc); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	return &doc, nil
}

// DurationSecondsFile returns the container duration of a local file.
func (f *Ffprobe) DurationSecondsFile(ctx context.Context, filename string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		filename,
	}
	output, err := exec.CommandContext(ctx, f.binary, args...).Output()
	if err != nil {
		return 0, fmt.Errorf("stream probing failed: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration: %w", err)
	}
	return duration, nil
}

// FullStreamAlreadyDownloaded reports whether the file on disk already
// covers (nearly) the whole clip.
func (f *Ffprobe) FullStreamAlreadyDownloaded(ctx context.Context, filename string, clip *types.Clip) bool {
	if clip == nil || clip.DurationSeconds <= 0 {
		return false
	}
	fileDuration, err := f.DurationSecondsFile(ctx, filename)
	if err != nil {
		f.logger.WithField("file", filename).WithError(err).Debug("failed to read the duration")
		return false
	}
	return fileDuration >= 0.98*float64(clip.DurationSeconds)
}

var ffmpegVersionRe = regexp.MustCompile(`ffmpeg version n?(\d+)\.(\d+)`)

var (
	versionMu    sync.Mutex
	versionCache = map[string][2]int{}
)

// FfmpegVersion returns the (major, minor) version of an ffmpeg binary.
// The result is memoized per binary path. Returns (0, 0) when the version
// output cannot be parsed and ErrFfmpegNotFound when the binary is missing.
func FfmpegVersion(ctx context.Context, ffmpegBinary string) (int, int, error) {
	versionMu.Lock()
	cached, ok := versionCache[ffmpegBinary]
	versionMu.Unlock()
	if ok {
		return cached[0], cached[1], nil
	}

	output, err := exec.CommandContext(ctx, ffmpegBinary, "-loglevel", "quiet", "-version").Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return 0, 0, types.ErrFfmpegNotFound
		}
		return 0, 0, err
	}

	major, minor := 0, 0
	lines := strings.SplitN(string(output), "\n", 2)
	if m := ffmpegVersionRe.FindStringSubmatch(lines[0]); m != nil {
		major, _ = strconv.Atoi(m[1])
		minor, _ = strconv.Atoi(m[2])
	}

	versionMu.Lock()
	versionCache[ffmpegBinary] = [2]int{major, minor}
	versionMu.Unlock()
	return major, minor, nil
}
