package backend

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/famomatic/yledl/internal/localization"
	"github.com/famomatic/yledl/internal/probe"
	"github.com/famomatic/yledl/internal/types"
)

// DASHHLSConfig tunes how a DASHHLSBackend drives ffmpeg.
type DASHHLSConfig struct {
	// LongProbe makes ffmpeg analyze the stream longer before choosing
	// the variant. Needed for multi-variant full-HD manifests.
	LongProbe bool
	// ProgramID selects a program variant. Nil means probe at download
	// time.
	ProgramID *int
	Live      bool
	// ExperimentalSubtitles enables decoding of webvtt subtitles on HLS
	// streams.
	ExperimentalSubtitles bool
	Logger                logrus.FieldLogger
}

// DASHHLSBackend downloads a DASH or HLS stream by delegating to ffmpeg.
type DASHHLSBackend struct {
	url    string
	cfg    DASHHLSConfig
	logger logrus.FieldLogger

	programID    int
	hasProgramID bool
}

// NewDASHHLSBackend returns an ffmpeg downloader for the given manifest.
func NewDASHHLSBackend(url string, cfg DASHHLSConfig) *DASHHLSBackend {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	b := &DASHHLSBackend{url: url, cfg: cfg, logger: logger}
	if cfg.ProgramID != nil {
		b.programID = *cfg.ProgramID
		b.hasProgramID = true
	}
	return b
}

func (b *DASHHLSBackend) Name() string         { return types.BackendFfmpeg }
func (b *DASHHLSBackend) IsValid() bool        { return true }
func (b *DASHHLSBackend) ErrorMessage() string { return "" }
func (b *DASHHLSBackend) StreamURL() string    { return b.url }

func (b *DASHHLSBackend) Capabilities() types.IOCapability {
	return types.CapSlice | types.CapProxy
}

func (b *DASHHLSBackend) FileExtension(preferred string) types.FileExtension {
	if preferred == "" {
		return types.PreferredFileExtension(".mp4")
	}
	if !strings.HasPrefix(preferred, ".") {
		preferred = "." + preferred
	}
	return types.PreferredFileExtension(preferred)
}

func (b *DASHHLSBackend) SaveStream(ctx context.Context, outputName string, clip *types.Clip, io *types.IOContext) (types.RDCode, error) {
	warnOnUnsupportedResume(b.Capabilities(), outputName, io, b.logger)

	args, err := b.buildArgs(ctx, outputName, clip, io)
	if err != nil {
		return types.RDFailed, err
	}
	res, err := runCommands(ctx, [][]string{args}, nil, b.logger)
	if err != nil {
		if code := subprocessExitCode(err); code >= 0 {
			return exitCodeToRD(code), nil
		}
		return res, err
	}
	return res, nil
}

func (b *DASHHLSBackend) Pipe(ctx context.Context, io *types.IOContext) (types.RDCode, error) {
	args, err := b.buildPipeArgs(ctx, io)
	if err != nil {
		return types.RDFailed, err
	}
	res, err := runCommands(ctx, [][]string{args}, nil, b.logger)
	if err != nil {
		if code := subprocessExitCode(err); code >= 0 {
			return exitCodeToRD(code), nil
		}
		return res, err
	}
	return res, nil
}

func (b *DASHHLSBackend) FullStreamAlreadyDownloaded(filename string, clip *types.Clip, io *types.IOContext) bool {
	prober := probe.NewFfprobe(io.FfprobeBinary, io.XForwardedFor, b.logger)
	return prober.FullStreamAlreadyDownloaded(context.Background(), filename, clip)
}

func (b *DASHHLSBackend) buildArgs(ctx context.Context, outputName string, clip *types.Clip, io *types.IOContext) ([]string, error) {
	input, err := b.inputArgs(ctx, io)
	if err != nil {
		return nil, err
	}
	output, err := b.outputArgsFile(ctx, clip, io, outputName)
	if err != nil {
		return nil, err
	}
	return append(append([]string{io.FfmpegBinary}, input...), output...), nil
}

func (b *DASHHLSBackend) buildPipeArgs(ctx context.Context, io *types.IOContext) ([]string, error) {
	input, err := b.inputArgs(ctx, io)
	if err != nil {
		return nil, err
	}
	output, err := b.outputArgsPipe(ctx, io)
	if err != nil {
		return nil, err
	}
	return append(append([]string{io.FfmpegBinary}, input...), output...), nil
}

func (b *DASHHLSBackend) inputArgs(ctx context.Context, io *types.IOContext) ([]string, error) {
	args := []string{
		"-y",
		"-headers", fmt.Sprintf("X-Forwarded-For: %s\r\n", io.XForwardedFor),
		"-loglevel", ffmpegLoglevel(),
		"-thread_queue_size", "2048",
		// -seekable 0 is needed for media ID 67-xxxx streams
		"-seekable", "0",
	}

	major, _, err := probe.FfmpegVersion(ctx, io.FfmpegBinary)
	if err != nil {
		return nil, err
	}
	if major >= 7 {
		// required from 7.1.1 onwards for subtitles
		args = append(args, "-allowed_extensions", "ts,aac,vtt")
	}
	if io.Subtitles != "none" && !b.cfg.Live && b.cfg.ExperimentalSubtitles {
		// Needed for decoding webvtt subtitles on HLS streams.
		// Subtitles are disabled on live streams because ffmpeg hangs
		// on subtitle detection.
		args = append(args, "-strict", "experimental")
	}
	if logrus.IsLevelEnabled(logrus.WarnLevel) {
		args = append(args, "-stats")
	}
	if b.cfg.LongProbe {
		args = append(args,
			"-analyzeduration", "10000000",
			"-probesize", "80000000",
		)
	}
	args = append(args, b.seekPositionArgs(io.DownloadLimits)...)
	if io.Proxy != "" {
		args = append(args, "-http_proxy", io.Proxy)
	}
	args = append(args, "-i", b.url)
	return args, nil
}

func (b *DASHHLSBackend) outputArgsFile(ctx context.Context, clip *types.Clip, io *types.IOContext, outputName string) ([]string, error) {
	maps, err := b.mapVideoAndAudioStreams(ctx, io)
	if err != nil {
		return nil, err
	}
	subs, err := b.subtitleArgs(ctx, io)
	if err != nil {
		return nil, err
	}

	args := durationArgs(io.DownloadLimits)
	args = append(args, b.metadataArgs(clip, io, true)...)
	args = append(args, maps...)
	args = append(args, subs...)
	args = append(args,
		"-bsf:a", "aac_adtstoasc",
		"-vcodec", "copy",
		"-acodec", "copy",
		"-dn",
		"file:"+outputName,
	)
	return args, nil
}

func (b *DASHHLSBackend) outputArgsPipe(ctx context.Context, io *types.IOContext) ([]string, error) {
	maps, err := b.mapVideoAndAudioStreams(ctx, io)
	if err != nil {
		return nil, err
	}
	subs, err := b.subtitleArgs(ctx, io)
	if err != nil {
		return nil, err
	}

	args := durationArgs(io.DownloadLimits)
	args = append(args, maps...)
	args = append(args, subs...)
	args = append(args,
		"-vcodec", "copy",
		"-acodec", "aac",
		"-dn",
		"-f", "matroska",
		"pipe:1",
	)
	return args, nil
}

func (b *DASHHLSBackend) seekPositionArgs(limits types.DownloadLimits) []string {
	if limits.StartPosition <= 0 {
		return nil
	}
	if b.cfg.Live {
		// Areena seems to use 6 second fragments
		return []string{"-live_start_index", strconv.Itoa(limits.StartPosition / 6)}
	}
	return []string{"-ss", strconv.Itoa(limits.StartPosition)}
}

func (b *DASHHLSBackend) metadataArgs(clip *types.Clip, io *types.IOContext, descriptionOnVideoStream bool) []string {
	if clip == nil {
		return nil
	}
	var args []string
	if clip.Description != "" {
		spec := ""
		if descriptionOnVideoStream && !b.isMP4(io) {
			spec = ":s:v:0"
		}
		args = append(args, "-metadata"+spec, "description="+clip.Description)
	}
	if clip.PublishTimestamp != nil {
		args = append(args, "-metadata", "creation_time="+clip.PublishTimestamp.Format(time.RFC3339))
	}
	return args
}

func (b *DASHHLSBackend) resolveProgramID(ctx context.Context, io *types.IOContext) (int, error) {
	if b.hasProgramID {
		return b.programID, nil
	}

	prober := probe.NewFfprobe(io.FfprobeBinary, io.XForwardedFor, b.logger)
	doc, err := prober.ShowProgramsForURL(ctx, b.url)
	if err != nil {
		return 0, err
	}
	b.programID = selectMaxBitrateVideoAudioPID(doc.Programs)
	b.hasProgramID = true
	return b.programID, nil
}

// selectMaxBitrateVideoAudioPID picks the program variant to download:
// prefer programs with both video and audio, then the highest bitrate, then
// the highest program id since the later variants usually have higher
// quality.
func selectMaxBitrateVideoAudioPID(programs []probe.Program) int {
	if len(programs) == 0 {
		return 0
	}

	candidates := make([]probe.Program, 0, len(programs))
	for _, p := range programs {
		if p.HasVideoAndAudio() {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		candidates = programs
	}

	best := candidates[0]
	for _, p := range candidates[1:] {
		if p.VariantBitrate() > best.VariantBitrate() ||
			(p.VariantBitrate() == best.VariantBitrate() && p.ProgramID > best.ProgramID) {
			best = p
		}
	}
	return best.ProgramID
}

func (b *DASHHLSBackend) subtitleArgs(ctx context.Context, io *types.IOContext) ([]string, error) {
	if io.Subtitles == "none" {
		return []string{"-sn"}, nil
	}

	scodec := "srt"
	if b.isMP4(io) {
		scodec = "mov_text"
	}

	if io.Subtitles == "all" {
		pid, err := b.resolveProgramID(ctx, io)
		if err != nil {
			return nil, err
		}
		spec, err := b.optionalStream(ctx, fmt.Sprintf("0:p:%d:s", pid), io)
		if err != nil {
			return nil, err
		}
		return []string{"-scodec", scodec, "-map", spec}, nil
	}

	// The subtitles are labelled sometimes with a two-letter code,
	// sometimes with a three-letter code. Try both.
	shortCode := localization.TwoLetterLanguage(io.Subtitles)
	if shortCode == "" {
		shortCode = io.Subtitles
	}
	shortSpec, err := b.optionalStream(ctx, "0:s:m:language:"+shortCode, io)
	if err != nil {
		return nil, err
	}
	longSpec, err := b.optionalStream(ctx, "0:s:m:language:"+io.Subtitles, io)
	if err != nil {
		return nil, err
	}
	return []string{"-scodec", scodec, "-map", shortSpec, "-map", longSpec}, nil
}

func (b *DASHHLSBackend) mapVideoAndAudioStreams(ctx context.Context, io *types.IOContext) ([]string, error) {
	pid, err := b.resolveProgramID(ctx, io)
	if err != nil {
		return nil, err
	}
	videoSpec, err := b.optionalStream(ctx, fmt.Sprintf("0:p:%d:v", pid), io)
	if err != nil {
		return nil, err
	}
	audioSpec, err := b.optionalStream(ctx, fmt.Sprintf("0:p:%d:a", pid), io)
	if err != nil {
		return nil, err
	}
	return []string{"-map", videoSpec, "-map", audioSpec}, nil
}

func (b *DASHHLSBackend) optionalStream(ctx context.Context, streamSpec string, io *types.IOContext) (string, error) {
	major, minor, err := probe.FfmpegVersion(ctx, io.FfmpegBinary)
	if err != nil {
		return "", err
	}
	if major > 7 || (major == 7 && minor >= 1) {
		return streamSpec + ":?", nil
	}
	return streamSpec + "?", nil
}

func (b *DASHHLSBackend) isMP4(io *types.IOContext) bool {
	if io.OutputFilename != "" && strings.HasSuffix(io.OutputFilename, ".mp4") {
		return true
	}
	return io.PreferredFormat == "mp4" || io.PreferredFormat == ".mp4"
}

func ffmpegLoglevel() string {
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		return "info"
	}
	return "error"
}

func durationArgs(limits types.DownloadLimits) []string {
	if limits.Duration > 0 {
		return []string{"-t", strconv.Itoa(limits.Duration)}
	}
	return nil
}

// HLSAudioBackend downloads an HLS audio stream with ffmpeg and stores it
// as an mp3 file.
type HLSAudioBackend struct {
	*DASHHLSBackend
}

// NewHLSAudioBackend returns an ffmpeg downloader for an audio manifest.
func NewHLSAudioBackend(url string, logger logrus.FieldLogger) *HLSAudioBackend {
	return &HLSAudioBackend{NewDASHHLSBackend(url, DASHHLSConfig{Logger: logger})}
}

func (b *HLSAudioBackend) FileExtension(preferred string) types.FileExtension {
	return types.MandatoryFileExtension(".mp3")
}

func (b *HLSAudioBackend) SaveStream(ctx context.Context, outputName string, clip *types.Clip, io *types.IOContext) (types.RDCode, error) {
	warnOnUnsupportedResume(b.Capabilities(), outputName, io, b.logger)

	input, err := b.inputArgs(ctx, io)
	if err != nil {
		return types.RDFailed, err
	}
	args := append([]string{io.FfmpegBinary}, input...)
	args = append(args, durationArgs(io.DownloadLimits)...)
	args = append(args, b.metadataArgs(clip, io, false)...)
	args = append(args, "-acodec", "copy", "-f", "mp3", "file:"+outputName)

	res, err := runCommands(ctx, [][]string{args}, nil, b.logger)
	if err != nil {
		if code := subprocessExitCode(err); code >= 0 {
			return exitCodeToRD(code), nil
		}
		return res, err
	}
	return res, nil
}

func (b *HLSAudioBackend) Pipe(ctx context.Context, io *types.IOContext) (types.RDCode, error) {
	input, err := b.inputArgs(ctx, io)
	if err != nil {
		return types.RDFailed, err
	}
	args := append([]string{io.FfmpegBinary}, input...)
	args = append(args, durationArgs(io.DownloadLimits)...)
	args = append(args, "-acodec", "copy", "-f", "mp3", "pipe:1")

	res, err := runCommands(ctx, [][]string{args}, nil, b.logger)
	if err != nil {
		if code := subprocessExitCode(err); code >= 0 {
			return exitCodeToRD(code), nil
		}
		return res, err
	}
	return res, nil
}
