package audiocore

import "github.com/soundvault/soundvault-go/internal/errors"

// Sentinel errors shared across the audio pipeline.
var (
	ErrInvalidFormat      = errors.NewStd("invalid audio format")
	ErrUnsupportedFile    = errors.NewStd("unsupported audio file")
	ErrDecoderCancelled   = errors.NewStd("decode session cancelled")
	ErrQueueClosed        = errors.NewStd("chunk queue closed")
	ErrDeviceUnavailable  = errors.NewStd("output device unavailable")
	ErrTransportNotActive = errors.NewStd("transport not active")
)
