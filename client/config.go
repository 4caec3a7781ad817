package client

import (
	"github.com/sirupsen/logrus"
)

// Config holds the per-process configuration of the downloader client.
type Config struct {
	// Proxy is an HTTPS proxy URL used for metadata and stream requests.
	Proxy string

	// XForwardedFor is sent on every API request. If empty, a random
	// Finnish consumer IP address is generated, which is required for
	// probing geo blocked streams from abroad.
	XForwardedFor string

	// OutputTemplate controls the generated file names. See the
	// ${series}, ${title}, ${episode}, ${timestamp}, ${date} and
	// ${program_id} tokens. Empty means the default template.
	OutputTemplate string

	// Logger receives progress and warning messages. If nil, the
	// standard logrus logger is used.
	Logger logrus.FieldLogger
}

// Unlimited disables a numeric limit in Options.
const Unlimited = -1

// DefaultOptions returns Options with no limits and the standard tool
// names. Use this as the starting point; the zero value of Options sets
// MaxHeight and MaxBitrate to zero, which means the worst variant.
func DefaultOptions() Options {
	return Options{
		MaxHeight:     Unlimited,
		MaxBitrate:    Unlimited,
		SubLang:       "all",
		FfmpegBinary:  "ffmpeg",
		FfprobeBinary: "ffprobe",
		WgetBinary:    "wget",
	}
}

// Options are the per-URL download and selection settings.
type Options struct {
	// OutputFilename forces the output file name. "-" means stdout.
	OutputFilename string
	// PreferredFormat is the preferred file extension, e.g. "mkv".
	PreferredFormat string
	// DestDir is the directory for generated file names.
	DestDir string
	// CreateDirs creates missing output directories.
	CreateDirs bool
	// Resume continues a partial download when the backend supports it.
	Resume bool
	// NoOverwrite skips clips whose output file already exists.
	NoOverwrite bool

	// StartPosition seeks this many seconds into the stream.
	StartPosition int
	// Duration limits the recording length in seconds.
	Duration int
	// Ratelimit caps the download speed in kilobytes per second.
	Ratelimit int

	// MaxHeight limits the vertical resolution. Unlimited disables the
	// limit; zero selects the worst variant.
	MaxHeight int
	// MaxBitrate limits the stream bitrate in kB/s.
	MaxBitrate int
	// Backends is the downloader preference order. Empty means the
	// default order.
	Backends []string
	// LatestOnly downloads only the latest episode of a series.
	LatestOnly bool

	// SubLang selects embedded subtitle languages: a language code,
	// "all" or "none". Empty means "all".
	SubLang string
	// MetadataLanguage selects Finnish or Swedish titles ("fin", "swe").
	MetadataLanguage string
	// ExcludeChars are additional characters removed from file names.
	ExcludeChars string

	// PostprocessCmd is run with the output file as an argument after a
	// successful download.
	PostprocessCmd string
	// Xattr records clip metadata as extended file attributes.
	Xattr bool

	// FfmpegBinary, FfprobeBinary and WgetBinary override the external
	// tool paths.
	FfmpegBinary  string
	FfprobeBinary string
	WgetBinary    string
}
