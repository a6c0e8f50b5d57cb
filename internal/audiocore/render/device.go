// Package render drives decoded chunks through the EQ and gain stages out
// to the platform audio device. The graph's render callback runs on the
// device's real-time thread and never blocks: when no chunk is ready it
// emits silence.
package render

import "github.com/soundvault/soundvault-go/internal/audiocore"

// RenderFunc fills out with frameCount interleaved float32 frames. The
// buffer arrives zeroed; a partial fill leaves silence in the tail.
type RenderFunc func(out []byte, frameCount int)

// OutputDevice abstracts the platform playback device. Start after Stop
// reinitializes the device, which is how recovery from a lost device
// works.
type OutputDevice interface {
	// Start opens the device and begins pulling audio through render.
	// stopped fires when the device halts without a Stop call, e.g. when
	// the hardware disappears.
	Start(format audiocore.AudioFormat, render RenderFunc, stopped func()) error

	// Stop halts playback and releases the device.
	Stop() error

	// Running reports whether the device is currently started.
	Running() bool
}
