package types

import "context"

// MediaType classifies a stream flavor's content.
const (
	MediaTypeVideo   = "video"
	MediaTypeAudio   = "audio"
	MediaTypeUnknown = "unknown"
)

// StreamFlavor is one quality/codec variant of a clip. Streams holds the
// candidate backends in native preference order; the selector reorders them
// on a shallow copy according to the user's backend preference.
type StreamFlavor struct {
	MediaType string
	Height    int
	Width     int
	Bitrate   int
	Streams   []Backend
}

// FailedFlavor is a sentinel flavor whose sole stream is an invalid backend
// carrying an error message.
func FailedFlavor(errorMessage string) StreamFlavor {
	return StreamFlavor{
		MediaType: MediaTypeUnknown,
		Streams:   []Backend{&FailingBackend{Message: errorMessage}},
	}
}

// FailingBackend represents a stream that could not be resolved. It never
// executes; it only carries the error message to the user.
type FailingBackend struct {
	Message string
}

func (b *FailingBackend) Name() string                       { return "" }
func (b *FailingBackend) IsValid() bool                      { return false }
func (b *FailingBackend) ErrorMessage() string               { return b.Message }
func (b *FailingBackend) Capabilities() IOCapability         { return 0 }
func (b *FailingBackend) StreamURL() string                  { return "" }
func (b *FailingBackend) FileExtension(string) FileExtension { return PreferredFileExtension(".mp4") }

func (b *FailingBackend) SaveStream(_ context.Context, _ string, _ *Clip, _ *IOContext) (RDCode, error) {
	return RDFailed, nil
}

func (b *FailingBackend) Pipe(_ context.Context, _ *IOContext) (RDCode, error) {
	return RDFailed, nil
}

func (b *FailingBackend) FullStreamAlreadyDownloaded(string, *Clip, *IOContext) bool {
	return false
}
