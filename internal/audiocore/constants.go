package audiocore

import "time"

const (
	// DefaultChunkFrames is the nominal chunk size: 2048 frames is about
	// 43 ms at 48 kHz.
	DefaultChunkFrames = 2048

	// DefaultMaxPendingChunks bounds the decode queue; 8 chunks is about
	// 340 ms of look-ahead at the default chunk size.
	DefaultMaxPendingChunks = 8

	// DefaultDecodeBackoff is how long the decode worker waits when the
	// queue is full before re-checking. Cancellation is observed within
	// one backoff interval.
	DefaultDecodeBackoff = 5 * time.Millisecond

	// DefaultCompletionGuard suppresses spurious "finished" signals that
	// some transports emit right after schedule setup.
	DefaultCompletionGuard = 800 * time.Millisecond
)
