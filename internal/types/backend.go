package types

import "context"

// RDCode is the result of a download or pipe attempt. The values double as
// process exit codes, so they must stay stable.
type RDCode int

const (
	RDSuccess    RDCode = 0
	RDFailed     RDCode = 1
	RDIncomplete RDCode = 2
)

// IOCapability is a bit set describing which IO features a backend supports.
type IOCapability uint8

const (
	CapResume IOCapability = 1 << iota
	CapProxy
	CapRatelimit
	CapSlice
)

// Has reports whether all capabilities in other are present in the set.
func (c IOCapability) Has(other IOCapability) bool {
	return c&other == other
}

// FileExtension is a backend's output file extension. A mandatory extension
// replaces whatever the user requested; a preferred one is only appended
// when the output name has no extension.
type FileExtension struct {
	Extension string
	Mandatory bool
}

func PreferredFileExtension(ext string) FileExtension {
	return FileExtension{Extension: dotted(ext)}
}

func MandatoryFileExtension(ext string) FileExtension {
	return FileExtension{Extension: dotted(ext), Mandatory: true}
}

func dotted(ext string) string {
	if ext == "" || ext[0] == '.' {
		return ext
	}
	return "." + ext
}

// Backend executes the download of one stream URL with one external tool.
// Backends are values owned by their StreamFlavor; an invalid backend
// carries an error message and never executes.
type Backend interface {
	Name() string
	IsValid() bool
	ErrorMessage() string
	Capabilities() IOCapability
	FileExtension(preferred string) FileExtension
	StreamURL() string

	// SaveStream downloads the stream to outputName. A TransientError
	// return means a retry with the same backend may succeed; an
	// ExternalApplicationError means the tool is missing and the next
	// backend should be tried.
	SaveStream(ctx context.Context, outputName string, clip *Clip, io *IOContext) (RDCode, error)

	// Pipe writes the stream to stdout.
	Pipe(ctx context.Context, io *IOContext) (RDCode, error)

	// FullStreamAlreadyDownloaded reports whether filename already contains
	// the complete stream. Backends that cannot tell return false.
	FullStreamAlreadyDownloaded(filename string, clip *Clip, io *IOContext) bool
}

// Backend names accepted by the --backend option, in default preference
// order.
const (
	BackendFfmpeg = "ffmpeg"
	BackendWget   = "wget"
)

func DefaultBackends() []string {
	return []string{BackendFfmpeg, BackendWget}
}

func IsValidBackendName(name string) bool {
	for _, b := range DefaultBackends() {
		if b == name {
			return true
		}
	}
	return false
}
