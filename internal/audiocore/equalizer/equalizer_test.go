package equalizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, rate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(rate)))
	}
	return out
}

// rms over the tail of the block, past the filter's settling time.
func tailRMS(samples []float32) float64 {
	tail := samples[len(samples)/2:]
	var sum float64
	for _, v := range tail {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(tail)))
}

func TestPeakingBoostsCenterFrequency(t *testing.T) {
	const rate = 48000
	f, err := NewPeaking(rate, 1000, 1.0, 12, 1)
	require.NoError(t, err)

	in := sine(1000, rate, rate/2)
	ref := tailRMS(in)
	f.Apply(in, 0)

	gainDB := 20 * math.Log10(tailRMS(in)/ref)
	assert.InDelta(t, 12, gainDB, 0.5)
}

func TestPeakingLeavesDistantFrequencyAlone(t *testing.T) {
	const rate = 48000
	f, err := NewPeaking(rate, 60, 1.0, 12, 1)
	require.NoError(t, err)

	in := sine(8000, rate, rate/2)
	ref := tailRMS(in)
	f.Apply(in, 0)

	gainDB := 20 * math.Log10(tailRMS(in)/ref)
	assert.InDelta(t, 0, gainDB, 0.5)
}

func TestPeakingRejectsBadFrequency(t *testing.T) {
	_, err := NewPeaking(48000, 0, 1.0, 6, 1)
	assert.Error(t, err)
	_, err = NewPeaking(48000, 24000, 1.0, 6, 1)
	assert.Error(t, err)
}

func TestFilterChannelStatesAreIndependent(t *testing.T) {
	const rate = 48000
	f, err := NewPeaking(rate, 1000, 1.0, 12, 2)
	require.NoError(t, err)

	left := sine(1000, rate, 4800)
	right := make([]float32, 4800)

	f.Apply(left, 0)
	f.Apply(right, 1)

	// A silent channel stays silent regardless of the other channel's
	// filter state.
	for _, v := range right {
		assert.Zero(t, v)
	}
}

func testConfig() Config {
	return Config{
		SampleRate: 48000,
		Channels:   2,
		Bands:      []float64{60, 230, 910, 3600, 14000},
		BandWidth:  1.0,
		MinGainDB:  -12,
		MaxGainDB:  12,
	}
}

func TestBandEQGainRoundTrip(t *testing.T) {
	eq, err := New(testConfig())
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 0, 0, 0}, eq.Gains())

	require.NoError(t, eq.SetGains([]float64{3, -6, 0, 9, -1.5}))
	assert.Equal(t, []float64{3, -6, 0, 9, -1.5}, eq.Gains())

	eq.Reset()
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, eq.Gains())
}

func TestBandEQClampsGains(t *testing.T) {
	eq, err := New(testConfig())
	require.NoError(t, err)

	require.NoError(t, eq.SetGains([]float64{40, -40, 0, 0, 0}))
	assert.Equal(t, []float64{12, -12, 0, 0, 0}, eq.Gains())
}

func TestBandEQRejectsWrongGainCount(t *testing.T) {
	eq, err := New(testConfig())
	require.NoError(t, err)

	assert.Error(t, eq.SetGains([]float64{1, 2}))
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, eq.Gains(), "failed set leaves gains untouched")
}

func TestBandEQFlatIsPassthrough(t *testing.T) {
	eq, err := New(testConfig())
	require.NoError(t, err)

	in := sine(440, 48000, 1024)
	want := append([]float32(nil), in...)
	eq.Process([][]float32{in, append([]float32(nil), in...)})
	assert.Equal(t, want, in)
}

func TestBandEQBoostAffectsSignal(t *testing.T) {
	eq, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, eq.SetGains([]float64{0, 0, 12, 0, 0}))

	in := sine(910, 48000, 48000)
	ref := tailRMS(in)
	eq.Process([][]float32{in})

	gainDB := 20 * math.Log10(tailRMS(in)/ref)
	assert.InDelta(t, 12, gainDB, 1.0)
}

func TestBandEQValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no bands", func(c *Config) { c.Bands = nil }},
		{"band above nyquist", func(c *Config) { c.Bands = []float64{60, 30000} }},
		{"bands not increasing", func(c *Config) { c.Bands = []float64{230, 60} }},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"empty gain range", func(c *Config) { c.MinGainDB, c.MaxGainDB = 6, -6 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}
}
