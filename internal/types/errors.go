package types

import "errors"

var (
	// ErrUnsupportedURL indicates that no extractor recognizes the input URL.
	ErrUnsupportedURL = errors.New("unsupported URL")

	// ErrFfmpegNotFound indicates that the ffmpeg executable could not be run.
	ErrFfmpegNotFound = errors.New("ffmpeg not found")
)

// TransientError is a download failure where retrying the same backend may
// succeed, such as a file I/O error or a network interruption reported by
// the external tool.
type TransientError struct {
	Message string
}

func (e *TransientError) Error() string {
	return e.Message
}

// ExternalApplicationError indicates that a backend's external tool failed
// to start, typically because the executable is not installed. The next
// backend should be tried instead of retrying.
type ExternalApplicationError struct {
	Message string
	Err     error
}

func (e *ExternalApplicationError) Error() string {
	return e.Message
}

func (e *ExternalApplicationError) Unwrap() error {
	return e.Err
}
