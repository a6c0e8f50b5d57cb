package decode

import (
	"sync"
	"time"

	"github.com/soundvault/soundvault-go/internal/audiocore"
)

// ChunkQueue is the bounded handoff between the background decode worker
// and the render callback. The producer blocks with a bounded wait when the
// queue is full; the consumer never blocks. The internal mutex is held only
// for pointer shuffling, never across I/O.
type ChunkQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	chunks []*audiocore.AudioChunk
	max    int
	closed bool
}

// NewChunkQueue creates a queue holding at most maxPending chunks.
func NewChunkQueue(maxPending int) *ChunkQueue {
	if maxPending <= 0 {
		maxPending = audiocore.DefaultMaxPendingChunks
	}
	q := &ChunkQueue{max: maxPending}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a chunk, waiting while the queue is full. The wait is
// bounded: the producer re-checks cancelled at least once per backoff
// interval, and Clear/Close wake it immediately.
func (q *ChunkQueue) Push(chunk *audiocore.AudioChunk, cancelled func() bool, backoff time.Duration) error {
	if backoff <= 0 {
		backoff = audiocore.DefaultDecodeBackoff
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.chunks) >= q.max {
		if q.closed {
			return audiocore.ErrQueueClosed
		}
		if cancelled != nil && cancelled() {
			return audiocore.ErrDecoderCancelled
		}
		// Bounded wait: a timer guarantees the wait ends within one
		// backoff interval even if no consumer signal arrives.
		timer := time.AfterFunc(backoff, q.cond.Broadcast)
		q.cond.Wait()
		timer.Stop()
	}

	if q.closed {
		return audiocore.ErrQueueClosed
	}
	if cancelled != nil && cancelled() {
		return audiocore.ErrDecoderCancelled
	}

	q.chunks = append(q.chunks, chunk)
	return nil
}

// TryPop removes and returns the oldest chunk, or nil when the queue is
// empty. Safe on the render path: no blocking, no allocation.
func (q *ChunkQueue) TryPop() *audiocore.AudioChunk {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.chunks) == 0 {
		return nil
	}
	chunk := q.chunks[0]
	q.chunks[0] = nil
	q.chunks = q.chunks[1:]
	q.cond.Broadcast()
	return chunk
}

// Close marks the write side done. Pending chunks stay poppable.
func (q *ChunkQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Clear discards all pending chunks, waking a blocked producer.
func (q *ChunkQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.chunks = nil
	q.cond.Broadcast()
}

// Len returns the number of pending chunks.
func (q *ChunkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}

// Drained reports end-of-stream: the write side is closed and every
// buffered chunk has been consumed.
func (q *ChunkQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.chunks) == 0
}
