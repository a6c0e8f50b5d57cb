package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInOrder(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe()

	bus.Publish(Event{Kind: KindFinished, SessionID: "s1"})
	bus.Publish(Event{Kind: KindDeviceLost})
	bus.Publish(Event{Kind: KindDeviceRecovered})

	ev := <-sub
	assert.Equal(t, KindFinished, ev.Kind)
	assert.Equal(t, "s1", ev.SessionID)
	assert.False(t, ev.At.IsZero())

	assert.Equal(t, KindDeviceLost, (<-sub).Kind)
	assert.Equal(t, KindDeviceRecovered, (<-sub).Kind)
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	_ = bus.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < DefaultBufferSize*2; i++ {
			bus.Publish(Event{Kind: KindFinished})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Positive(t, bus.Dropped())
}

func TestCloseClosesSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	bus.Close()

	_, ok := <-sub
	assert.False(t, ok)

	// Publishing and subscribing after close are safe no-ops.
	bus.Publish(Event{Kind: KindFinished})
	late := bus.Subscribe()
	_, ok = <-late
	require.False(t, ok)
}
