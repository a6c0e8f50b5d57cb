// Package audiocore holds the value types shared by the decode pipeline and
// the render graph.
//
// Architecture overview:
//
//	SampleReader -> ChunkedDecoder -> ChunkQueue -> RenderGraph -> OutputDevice
//
// The chunk queue is the single synchronized handoff between the background
// decode worker and the real-time render callback.
package audiocore

import "time"

// AudioFormat is the render graph's target sample format. Samples are
// 32-bit float, non-interleaved; only rate and channel count vary.
type AudioFormat struct {
	SampleRate int // sample rate in Hz (e.g. 48000)
	Channels   int // channel count (1 mono, 2 stereo)
}

// Valid reports whether the format can drive the render graph.
func (f AudioFormat) Valid() bool {
	return f.SampleRate > 0 && (f.Channels == 1 || f.Channels == 2)
}

// FrameDuration returns the wall-clock duration of n frames.
func (f AudioFormat) FrameDuration(n int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(f.SampleRate) * float64(time.Second))
}

// AudioChunk is a fixed-length block of decoded, de-interleaved float32
// samples at the session's target format. The final chunk of a stream may
// be shorter than the nominal chunk size but never empty.
type AudioChunk struct {
	Frames  int         // valid frames, <= configured chunk size
	Samples [][]float32 // one slice per channel, each len >= Frames
}

// Channels returns the chunk's channel count.
func (c *AudioChunk) Channels() int {
	return len(c.Samples)
}
