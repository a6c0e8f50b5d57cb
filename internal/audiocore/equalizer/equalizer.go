// Package equalizer implements the playback EQ: a bank of peaking biquad
// filters from Robert Bristow-Johnson's audio EQ cookbook, one filter per
// band with independent state per channel.
package equalizer

import (
	"math"

	"github.com/soundvault/soundvault-go/internal/errors"
)

// Filter is a single biquad section with per-channel state. The
// normalized coefficients are precomputed so the per-sample path is five
// multiplies and four adds.
type Filter struct {
	// state variables, one set per channel
	in1  []float64
	in2  []float64
	out1 []float64
	out2 []float64

	// Pre-computed normalized coefficients
	b0a0, b1a0, b2a0, a1a0, a2a0 float64
}

// newFilter builds a Filter from raw biquad coefficients.
func newFilter(a0, a1, a2, b0, b1, b2 float64, channels int) *Filter {
	return &Filter{
		in1:  make([]float64, channels),
		in2:  make([]float64, channels),
		out1: make([]float64, channels),
		out2: make([]float64, channels),
		b0a0: b0 / a0,
		b1a0: b1 / a0,
		b2a0: b2 / a0,
		a1a0: a1 / a0,
		a2a0: a2 / a0,
	}
}

// NewPeaking returns a peaking filter.
//
// Parameters:
//
//   - sampleRate ... sample rate in Hz. e.g. 48000.0
//   - frequency ... center frequency in Hz.
//   - width ... bandwidth in octaves.
//   - gain ... gain at the center frequency in dB.
//   - channels ... number of independent channel states.
func NewPeaking(sampleRate, frequency, width, gain float64, channels int) (*Filter, error) {
	if channels < 1 {
		return nil, errors.NewStd("channels must be 1 or greater")
	}
	if frequency <= 0 || frequency >= sampleRate/2 {
		return nil, errors.Newf("center frequency %.1f Hz outside (0, %.1f)", frequency, sampleRate/2).
			Component(errors.ComponentRender).
			Category(errors.CategoryValidation).
			Build()
	}

	w0 := 2.0 * math.Pi * frequency / sampleRate
	alpha := math.Sin(w0) * math.Sinh(math.Log(2.0)/2.0*width*w0/math.Sin(w0))
	a := math.Pow(10.0, (gain / 40.0))

	return newFilter(
		1.0+alpha/a,
		-2.0*math.Cos(w0),
		1.0-alpha/a,
		1.0+alpha*a,
		-2.0*math.Cos(w0),
		1.0-alpha*a,
		channels,
	), nil
}

// Apply runs the filter over one channel's samples in place. ch selects
// the state set and must be below the channel count given at creation.
func (f *Filter) Apply(samples []float32, ch int) {
	in1, in2 := f.in1[ch], f.in2[ch]
	out1, out2 := f.out1[ch], f.out2[ch]

	for i := range samples {
		in := float64(samples[i])
		out := f.b0a0*in + f.b1a0*in1 + f.b2a0*in2 -
			f.a1a0*out1 - f.a2a0*out2

		in2 = in1
		in1 = in
		out2 = out1
		out1 = out

		samples[i] = float32(out)
	}

	f.in1[ch], f.in2[ch] = in1, in2
	f.out1[ch], f.out2[ch] = out1, out2
}
