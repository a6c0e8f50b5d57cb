package decode

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestWAV writes a 16-bit stereo file where frame i holds i in the
// left channel and -i in the right.
func writeTestWAV(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ramp.wav")

	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	enc := wav.NewEncoder(f, 48000, 16, 2, 1)
	data := make([]int, 0, frames*2)
	for i := 0; i < frames; i++ {
		data = append(data, i, -i)
	}
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: 48000, NumChannels: 2},
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return path
}

func TestWAVReaderReadsRamp(t *testing.T) {
	path := writeTestWAV(t, 1000)

	r := &WAVReader{}
	require.NoError(t, r.Open(path))
	defer func() { _ = r.Close() }()

	info := r.Info()
	assert.Equal(t, 48000, info.SampleRate)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 16, info.BitDepth)
	assert.Equal(t, int64(1000), info.TotalFrames)
	assert.Equal(t, FormatWAV, info.Format)

	dst := [][]float32{make([]float32, 300), make([]float32, 300)}
	var pos int64
	for {
		n, err := r.ReadFrames(dst)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			assert.InDelta(t, float64(pos)/32768.0, dst[0][i], 1e-6)
			assert.InDelta(t, -float64(pos)/32768.0, dst[1][i], 1e-6)
			pos++
		}
	}
	assert.Equal(t, int64(1000), pos)
}

func TestWAVReaderSeek(t *testing.T) {
	path := writeTestWAV(t, 1000)

	r := &WAVReader{}
	require.NoError(t, r.Open(path))
	defer func() { _ = r.Close() }()

	require.NoError(t, r.SeekFrame(600))

	dst := [][]float32{make([]float32, 10), make([]float32, 10)}
	n, err := r.ReadFrames(dst)
	require.NoError(t, err)
	require.Positive(t, n)
	assert.InDelta(t, 600.0/32768.0, dst[0][0], 1e-6)
}

func TestWAVReaderRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file"), 0o600))

	r := &WAVReader{}
	assert.Error(t, r.Open(path))
}

func TestNewReaderPicksByExtension(t *testing.T) {
	r, err := NewReader("/x/song.wav")
	require.NoError(t, err)
	assert.IsType(t, &WAVReader{}, r)

	r, err = NewReader("/x/song.FLAC")
	require.NoError(t, err)
	assert.IsType(t, &FLACReader{}, r)

	_, err = NewReader("/x/song.mp3")
	assert.Error(t, err)
}
