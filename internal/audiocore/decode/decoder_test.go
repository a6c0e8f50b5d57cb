package decode

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/soundvault/soundvault-go/internal/audiocore"
	"github.com/soundvault/soundvault-go/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource produces deterministic frames: channel ch at frame position p
// has the value float32(p)*1000 + float32(ch).
type fakeSource struct {
	totalFrames int64
	channels    int
	maxRead     int
	pos         int64
	failAfter   int64
	seeks       []int64
	closed      bool
}

func sampleAt(pos int64, ch int) float32 {
	return float32(pos)*1000 + float32(ch)
}

func (f *fakeSource) ReadFrames(dst [][]float32) (int, error) {
	if f.failAfter > 0 && f.pos >= f.failAfter {
		return 0, errors.NewStd("synthetic decode failure")
	}
	if f.pos >= f.totalFrames {
		return 0, io.EOF
	}
	n := len(dst[0])
	if f.maxRead > 0 && n > f.maxRead {
		n = f.maxRead
	}
	if remaining := f.totalFrames - f.pos; int64(n) > remaining {
		n = int(remaining)
	}
	for i := 0; i < n; i++ {
		for ch := range dst {
			dst[ch][i] = sampleAt(f.pos+int64(i), ch)
		}
	}
	f.pos += int64(n)
	return n, nil
}

func (f *fakeSource) SeekFrame(offset int64) error {
	f.pos = offset
	f.seeks = append(f.seeks, offset)
	return nil
}

func (f *fakeSource) Info() Info {
	return Info{SampleRate: 48000, Channels: f.channels, TotalFrames: f.totalFrames, Path: "fake"}
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func testFormat() audiocore.AudioFormat {
	return audiocore.AudioFormat{SampleRate: 48000, Channels: 2}
}

// drain pops chunks until end of stream, polling like a render callback
// would.
func drain(t *testing.T, d *ChunkedDecoder) []*audiocore.AudioChunk {
	t.Helper()
	var chunks []*audiocore.AudioChunk
	require.Eventually(t, func() bool {
		for {
			c := d.Pop()
			if c == nil {
				break
			}
			chunks = append(chunks, c)
		}
		return d.IsEndOfStream()
	}, 5*time.Second, time.Millisecond)
	return chunks
}

func TestDecoderDeliversAllFramesInOrder(t *testing.T) {
	src := &fakeSource{totalFrames: 1000, channels: 2, maxRead: 100}
	d := NewChunkedDecoder(src, testFormat(), 256, 4, time.Millisecond)
	require.NoError(t, d.Start(0))

	chunks := drain(t, d)
	require.Len(t, chunks, 4)
	assert.Equal(t, 256, chunks[0].Frames)
	assert.Equal(t, 232, chunks[3].Frames, "final chunk is short, not padded")

	var pos int64
	for _, c := range chunks {
		require.Equal(t, 2, c.Channels())
		for i := 0; i < c.Frames; i++ {
			require.Equal(t, sampleAt(pos, 0), c.Samples[0][i])
			require.Equal(t, sampleAt(pos, 1), c.Samples[1][i])
			pos++
		}
	}
	assert.Equal(t, int64(1000), pos)
	assert.Equal(t, StateFinished, d.State())
	assert.True(t, src.closed)
}

func TestDecoderExactMultipleEmitsNoEmptyChunk(t *testing.T) {
	src := &fakeSource{totalFrames: 512, channels: 2}
	d := NewChunkedDecoder(src, testFormat(), 256, 4, time.Millisecond)
	require.NoError(t, d.Start(0))

	chunks := drain(t, d)
	require.Len(t, chunks, 2)
	assert.Equal(t, 256, chunks[0].Frames)
	assert.Equal(t, 256, chunks[1].Frames)
}

func TestDecoderBackpressure(t *testing.T) {
	src := &fakeSource{totalFrames: 100000, channels: 2}
	d := NewChunkedDecoder(src, testFormat(), 256, 2, time.Millisecond)
	require.NoError(t, d.Start(0))

	// With no consumer the worker parks at the queue bound.
	require.Eventually(t, func() bool { return d.Pending() == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, d.Pending())

	// A consumer pop frees a slot and decoding resumes.
	require.NotNil(t, d.Pop())
	require.Eventually(t, func() bool { return d.Pending() == 2 }, time.Second, time.Millisecond)

	d.Cancel()
	<-d.Done()
}

func TestDecoderCancelIsPrompt(t *testing.T) {
	src := &fakeSource{totalFrames: 100000, channels: 2}
	d := NewChunkedDecoder(src, testFormat(), 256, 2, 5*time.Millisecond)
	require.NoError(t, d.Start(0))

	require.Eventually(t, func() bool { return d.Pending() == 2 }, time.Second, time.Millisecond)

	start := time.Now()
	d.Cancel()
	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after Cancel")
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	assert.Equal(t, StateCancelled, d.State())
	assert.Nil(t, d.Pop(), "queued chunks are discarded on cancel")
	assert.True(t, d.IsEndOfStream())
	assert.True(t, src.closed)
}

func TestDecoderStartAtOffset(t *testing.T) {
	src := &fakeSource{totalFrames: 1000, channels: 2}
	d := NewChunkedDecoder(src, testFormat(), 256, 4, time.Millisecond)
	require.NoError(t, d.Start(600))

	chunks := drain(t, d)
	require.NotEmpty(t, chunks)
	assert.Equal(t, []int64{600}, src.seeks)
	assert.Equal(t, sampleAt(600, 0), chunks[0].Samples[0][0])

	var total int
	for _, c := range chunks {
		total += c.Frames
	}
	assert.Equal(t, 400, total)
}

func TestDecoderReadErrorEndsStream(t *testing.T) {
	src := &fakeSource{totalFrames: 100000, channels: 2, failAfter: 512}
	d := NewChunkedDecoder(src, testFormat(), 256, 8, time.Millisecond)
	require.NoError(t, d.Start(0))

	chunks := drain(t, d)
	assert.Len(t, chunks, 2, "frames decoded before the failure are kept")
	assert.Equal(t, StateFailed, d.State())
	assert.Error(t, d.Err())
}

func TestDecoderStartTwiceFails(t *testing.T) {
	src := &fakeSource{totalFrames: 100, channels: 2}
	d := NewChunkedDecoder(src, testFormat(), 256, 4, time.Millisecond)
	require.NoError(t, d.Start(0))
	assert.Error(t, d.Start(0))
	drain(t, d)
}
