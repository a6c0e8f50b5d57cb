package decode

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soundvault/soundvault-go/internal/audiocore"
	"github.com/soundvault/soundvault-go/internal/errors"
	"github.com/soundvault/soundvault-go/internal/logging"
)

// FrameSource is what the decode worker consumes. Both the raw readers
// and ConvertingReader satisfy it.
type FrameSource interface {
	ReadFrames(dst [][]float32) (int, error)
	SeekFrame(offset int64) error
	Info() Info
	Close() error
}

// State is the decode worker's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateReading
	StateFinished
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateFinished:
		return "finished"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChunkedDecoder runs a background worker that pulls frames from a
// FrameSource, slices them into fixed-size chunks and pushes them onto a
// bounded queue. The worker blocks when the queue is full and observes
// cancellation within one backoff interval. The final chunk of a stream
// may be short; empty chunks are never emitted.
type ChunkedDecoder struct {
	queue       *ChunkQueue
	source      FrameSource
	format      audiocore.AudioFormat
	chunkFrames int
	backoff     time.Duration

	cancelled atomic.Bool
	state     atomic.Int32
	done      chan struct{}

	mu     sync.Mutex
	runErr error

	logger *slog.Logger
}

// NewChunkedDecoder wraps an opened source. The decoder owns the source
// and closes it when the worker exits.
func NewChunkedDecoder(source FrameSource, format audiocore.AudioFormat, chunkFrames, maxPending int, backoff time.Duration) *ChunkedDecoder {
	if chunkFrames <= 0 {
		chunkFrames = audiocore.DefaultChunkFrames
	}
	if backoff <= 0 {
		backoff = audiocore.DefaultDecodeBackoff
	}
	return &ChunkedDecoder{
		queue:       NewChunkQueue(maxPending),
		source:      source,
		format:      format,
		chunkFrames: chunkFrames,
		backoff:     backoff,
		done:        make(chan struct{}),
		logger:      logging.ForService("decode"),
	}
}

// Start seeks to startFrame and launches the worker. It may be called
// once per decoder.
func (d *ChunkedDecoder) Start(startFrame int64) error {
	if !d.state.CompareAndSwap(int32(StateIdle), int32(StateReading)) {
		return errors.Newf("decoder already started (state %s)", d.State()).
			Component(errors.ComponentDecode).
			Category(errors.CategoryState).
			Build()
	}

	if startFrame > 0 {
		if err := d.source.SeekFrame(startFrame); err != nil {
			d.state.Store(int32(StateFailed))
			d.setErr(err)
			d.queue.Close()
			close(d.done)
			_ = d.source.Close()
			return err
		}
	}

	go d.run()
	return nil
}

func (d *ChunkedDecoder) run() {
	defer close(d.done)
	defer d.queue.Close()
	defer func() { _ = d.source.Close() }()

	cur := d.newChunkBuffers()
	fill := 0

	for !d.cancelled.Load() {
		view := make([][]float32, d.format.Channels)
		for ch := range view {
			view[ch] = cur[ch][fill:d.chunkFrames]
		}

		n, err := d.source.ReadFrames(view)
		fill += n

		if fill == d.chunkFrames {
			if !d.pushChunk(cur, fill) {
				d.finish(StateCancelled)
				return
			}
			cur = d.newChunkBuffers()
			fill = 0
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				if fill > 0 && !d.pushChunk(cur, fill) {
					d.finish(StateCancelled)
					return
				}
				d.finish(StateFinished)
			} else {
				// Decode errors end the stream; the consumer drains
				// what was already queued and sees a normal EOF.
				d.logger.Error("decode failed", "path", d.source.Info().Path, "error", err)
				d.setErr(err)
				d.finish(StateFailed)
			}
			return
		}
	}

	d.finish(StateCancelled)
}

func (d *ChunkedDecoder) newChunkBuffers() [][]float32 {
	bufs := make([][]float32, d.format.Channels)
	for ch := range bufs {
		bufs[ch] = make([]float32, d.chunkFrames)
	}
	return bufs
}

// pushChunk blocks until the queue accepts the chunk or the session is
// cancelled. Returns false on cancellation.
func (d *ChunkedDecoder) pushChunk(samples [][]float32, frames int) bool {
	chunk := &audiocore.AudioChunk{Frames: frames, Samples: samples}
	err := d.queue.Push(chunk, d.cancelled.Load, d.backoff)
	return err == nil
}

func (d *ChunkedDecoder) finish(s State) {
	d.state.Store(int32(s))
	if s == StateCancelled {
		d.queue.Clear()
	}
}

func (d *ChunkedDecoder) setErr(err error) {
	d.mu.Lock()
	d.runErr = err
	d.mu.Unlock()
}

// Cancel stops the worker promptly and discards queued chunks. Safe to
// call from any goroutine, any number of times.
func (d *ChunkedDecoder) Cancel() {
	d.cancelled.Store(true)
	d.queue.Clear()
}

// Pop returns the next decoded chunk, or nil if none is ready. Intended
// for the render callback; never blocks.
func (d *ChunkedDecoder) Pop() *audiocore.AudioChunk {
	return d.queue.TryPop()
}

// IsEndOfStream reports that the worker has exited and every queued chunk
// has been consumed.
func (d *ChunkedDecoder) IsEndOfStream() bool {
	return d.queue.Drained()
}

// Done is closed when the worker goroutine has exited.
func (d *ChunkedDecoder) Done() <-chan struct{} {
	return d.done
}

// State returns the worker's lifecycle state.
func (d *ChunkedDecoder) State() State {
	return State(d.state.Load())
}

// Err returns the terminal decode error, if any.
func (d *ChunkedDecoder) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runErr
}

// Pending returns the number of chunks waiting in the queue.
func (d *ChunkedDecoder) Pending() int {
	return d.queue.Len()
}
