package decode

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundvault/soundvault-go/internal/audiocore"
)

func TestResampleChannelIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3, 0.4}
	out := resampleChannel(in, 48000, 48000)
	assert.Equal(t, in, out)
}

func TestResampleChannelLengthRatio(t *testing.T) {
	in := make([]float32, 480)
	out := resampleChannel(in, 48000, 24000)
	assert.Len(t, out, 240)

	out = resampleChannel(in, 24000, 48000)
	assert.Len(t, out, 960)
}

func TestResampleChannelPreservesConstantSignal(t *testing.T) {
	in := make([]float32, 1000)
	for i := range in {
		in[i] = 0.5
	}
	out := resampleChannel(in, 44100, 48000)
	for _, v := range out {
		assert.InDelta(t, 0.5, v, 1e-4)
	}
}

func TestResampleChannelTracksSine(t *testing.T) {
	const srcRate, dstRate = 44100, 48000
	in := make([]float32, srcRate/10)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / srcRate))
	}
	out := resampleChannel(in, srcRate, dstRate)

	// Spot-check away from the block edges.
	for i := 100; i < len(out)-100; i += 97 {
		want := math.Sin(2 * math.Pi * 440 * float64(i) / dstRate)
		assert.InDelta(t, want, float64(out[i]), 0.01)
	}
}

func TestRemapChannels(t *testing.T) {
	mono := [][]float32{{0.2, 0.4}}
	stereo := remapChannels(mono, 2)
	require.Len(t, stereo, 2)
	assert.Equal(t, mono[0], stereo[0])
	assert.Equal(t, mono[0], stereo[1])

	back := remapChannels([][]float32{{0.2, 0.4}, {0.6, 0.8}}, 1)
	require.Len(t, back, 1)
	assert.InDelta(t, 0.4, back[0][0], 1e-6)
	assert.InDelta(t, 0.6, back[0][1], 1e-6)
}

func TestConvertingReaderChannelAndRate(t *testing.T) {
	src := &fakeConstantSource{totalFrames: 4410, channels: 1, rate: 44100, value: 0.25}
	conv, err := NewConvertingReader(src, audiocore.AudioFormat{SampleRate: 48000, Channels: 2})
	require.NoError(t, err)

	info := conv.Info()
	assert.Equal(t, 48000, info.SampleRate)
	assert.Equal(t, 2, info.Channels)
	assert.InDelta(t, 4800, info.TotalFrames, 10)

	dst := [][]float32{make([]float32, 512), make([]float32, 512)}
	var total int
	for {
		n, err := conv.ReadFrames(dst)
		total += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			assert.InDelta(t, 0.25, dst[0][i], 1e-3)
			assert.InDelta(t, 0.25, dst[1][i], 1e-3)
		}
	}
	assert.InDelta(t, 4800, total, 20)
	require.NoError(t, conv.Close())
	assert.True(t, src.closed)
}

func TestConvertingReaderSeekTranslatesOffset(t *testing.T) {
	src := &fakeConstantSource{totalFrames: 44100, channels: 2, rate: 44100}
	conv, err := NewConvertingReader(src, audiocore.AudioFormat{SampleRate: 48000, Channels: 2})
	require.NoError(t, err)

	require.NoError(t, conv.SeekFrame(48000))
	require.Len(t, src.seeks, 1)
	assert.InDelta(t, 44100, src.seeks[0], 2)
}

func TestConvertingReaderRejectsInvalidTarget(t *testing.T) {
	src := &fakeConstantSource{totalFrames: 100, channels: 2, rate: 44100}
	_, err := NewConvertingReader(src, audiocore.AudioFormat{SampleRate: 0, Channels: 2})
	assert.Error(t, err)
}

// fakeConstantSource emits a constant value at its native format.
type fakeConstantSource struct {
	totalFrames int64
	channels    int
	rate        int
	value       float32
	pos         int64
	seeks       []int64
	closed      bool
}

func (f *fakeConstantSource) ReadFrames(dst [][]float32) (int, error) {
	if f.pos >= f.totalFrames {
		return 0, io.EOF
	}
	n := len(dst[0])
	if remaining := f.totalFrames - f.pos; int64(n) > remaining {
		n = int(remaining)
	}
	for ch := range dst {
		for i := 0; i < n; i++ {
			dst[ch][i] = f.value
		}
	}
	f.pos += int64(n)
	return n, nil
}

func (f *fakeConstantSource) SeekFrame(offset int64) error {
	f.pos = offset
	f.seeks = append(f.seeks, offset)
	return nil
}

func (f *fakeConstantSource) Open(string) error { return nil }

func (f *fakeConstantSource) Info() Info {
	return Info{SampleRate: f.rate, Channels: f.channels, TotalFrames: f.totalFrames, Path: "fake"}
}

func (f *fakeConstantSource) Close() error {
	f.closed = true
	return nil
}
