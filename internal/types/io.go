package types

// DownloadLimits restrict what part of the stream is recorded and how fast.
type DownloadLimits struct {
	// Seek to this position (seconds) before starting the recording.
	StartPosition int
	// Limit the duration of the recorded stream (seconds). Zero means
	// unlimited.
	Duration int
	// Maximum download rate in kb/s. Zero means unlimited.
	Ratelimit int
}

// SlicingActive reports whether only a part of the stream is requested.
func (d DownloadLimits) SlicingActive() bool {
	return d.StartPosition > 0 || d.Duration > 0
}

// IOContext carries the output and transport settings for one invocation.
// It is owned by the orchestrator and passed read-only to backends.
type IOContext struct {
	OutputFilename   string
	PreferredFormat  string
	DestDir          string
	Resume           bool
	Overwrite        bool
	DownloadLimits   DownloadLimits
	ExcludeChars     string
	Proxy            string
	XForwardedFor    string
	Subtitles        string
	MetadataLanguage string
	PostprocessCmd   string
	FfmpegBinary     string
	FfprobeBinary    string
	WgetBinary       string
	CreateDirs       bool
	Xattr            bool
}

// DefaultIOContext returns an IOContext with the standard binary names and
// filename character exclusions.
func DefaultIOContext() *IOContext {
	return &IOContext{
		Overwrite:     true,
		ExcludeChars:  "*/|",
		Subtitles:     "all",
		FfmpegBinary:  "ffmpeg",
		FfprobeBinary: "ffprobe",
		WgetBinary:    "wget",
	}
}
