package decode

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundvault/soundvault-go/internal/audiocore"
)

func chunkOf(frames int) *audiocore.AudioChunk {
	return &audiocore.AudioChunk{
		Frames:  frames,
		Samples: [][]float32{make([]float32, frames), make([]float32, frames)},
	}
}

func never() bool { return false }

func TestQueueFIFO(t *testing.T) {
	q := NewChunkQueue(4)
	require.NoError(t, q.Push(chunkOf(1), never, time.Millisecond))
	require.NoError(t, q.Push(chunkOf(2), never, time.Millisecond))

	assert.Equal(t, 1, q.TryPop().Frames)
	assert.Equal(t, 2, q.TryPop().Frames)
	assert.Nil(t, q.TryPop())
}

func TestQueuePushBlocksUntilPop(t *testing.T) {
	q := NewChunkQueue(1)
	require.NoError(t, q.Push(chunkOf(1), never, time.Millisecond))

	pushed := make(chan error, 1)
	go func() {
		pushed <- q.Push(chunkOf(2), never, time.Millisecond)
	}()

	select {
	case <-pushed:
		t.Fatal("push returned while the queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	require.NotNil(t, q.TryPop())
	require.NoError(t, <-pushed)
	assert.Equal(t, 2, q.TryPop().Frames)
}

func TestQueuePushObservesCancellation(t *testing.T) {
	q := NewChunkQueue(1)
	require.NoError(t, q.Push(chunkOf(1), never, time.Millisecond))

	var cancelled atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- q.Push(chunkOf(2), cancelled.Load, time.Millisecond)
	}()

	time.Sleep(10 * time.Millisecond)
	cancelled.Store(true)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, audiocore.ErrDecoderCancelled)
	case <-time.After(time.Second):
		t.Fatal("push did not observe cancellation")
	}
}

func TestQueueCloseRejectsPushKeepsPops(t *testing.T) {
	q := NewChunkQueue(4)
	require.NoError(t, q.Push(chunkOf(1), never, time.Millisecond))
	q.Close()

	assert.ErrorIs(t, q.Push(chunkOf(2), never, time.Millisecond), audiocore.ErrQueueClosed)
	assert.False(t, q.Drained(), "buffered chunk still pending")
	assert.NotNil(t, q.TryPop())
	assert.True(t, q.Drained())
}

func TestQueueClearWakesProducer(t *testing.T) {
	q := NewChunkQueue(1)
	require.NoError(t, q.Push(chunkOf(1), never, time.Millisecond))

	done := make(chan error, 1)
	go func() {
		done <- q.Push(chunkOf(2), never, time.Millisecond)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Clear()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("push did not wake after Clear")
	}
	assert.Equal(t, 1, q.Len())
}
