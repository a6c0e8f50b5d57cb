// Package events carries playback lifecycle notifications from the engine
// to the control layer over an ordered channel. Every event is tagged with
// the session id it belongs to so consumers can discard stale signals.
package events

import "time"

// Kind identifies the type of a playback event.
type Kind int

const (
	// KindFinished signals that a session reached true end-of-stream.
	KindFinished Kind = iota
	// KindDeviceLost signals that the output device became unavailable.
	KindDeviceLost
	// KindDeviceRecovered signals that output resumed after an interruption.
	KindDeviceRecovered
	// KindPlaybackFailed signals that a session could not be started or
	// aborted with an unrecoverable error.
	KindPlaybackFailed
)

// String returns a stable name for the event kind.
func (k Kind) String() string {
	switch k {
	case KindFinished:
		return "finished"
	case KindDeviceLost:
		return "device_lost"
	case KindDeviceRecovered:
		return "device_recovered"
	case KindPlaybackFailed:
		return "playback_failed"
	default:
		return "unknown"
	}
}

// Event is a single playback notification.
type Event struct {
	Kind      Kind
	SessionID string    // session the event belongs to, empty for device events
	At        time.Time // when the event was emitted
	Err       error     // set for KindPlaybackFailed
}
