package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soundvault/soundvault-go/internal/logging"
)

// DefaultBufferSize bounds the per-subscriber event buffer. Playback emits
// events at human rates, so a small buffer suffices.
const DefaultBufferSize = 64

// Bus fans playback events out to subscribers. Publishing never blocks:
// when a subscriber's buffer is full the event is dropped and counted,
// keeping the engine's hot paths decoupled from slow consumers.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Event
	closed      bool

	dropped atomic.Int64
	logger  *slog.Logger
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		logger: logging.ForService("events"),
	}
}

// Subscribe registers a new consumer and returns its event channel.
// The channel is closed when the bus shuts down.
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, DefaultBufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Publish delivers an event to all subscribers without blocking.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
			b.logger.Warn("event dropped, subscriber buffer full",
				"kind", ev.Kind.String(),
				"session_id", ev.SessionID)
		}
	}
}

// Dropped returns the number of events dropped because of full buffers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
