package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishDeliversToSubscriber(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: EventSiteDiscovered, Message: "found a site"})

	select {
	case evt := <-sub:
		assert.Equal(t, EventSiteDiscovered, evt.Type)
		assert.False(t, evt.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroker_FanOutToMultipleSubscribers(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	subA := b.Subscribe()
	subB := b.Subscribe()
	defer b.Unsubscribe(subA)
	defer b.Unsubscribe(subB)

	require.Equal(t, 2, b.SubscriberCount())

	b.Publish(&Event{Type: EventFileProcessed})

	for _, sub := range []Subscriber{subA, subB} {
		select {
		case evt := <-sub:
			assert.Equal(t, EventFileProcessed, evt.Type)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out event")
		}
	}
}

func TestBroker_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub
	assert.False(t, ok, "channel should be closed after unsubscribe")
}

func TestBroker_PublishBeforeStartDoesNotBlockForever(t *testing.T) {
	b := NewBroker()
	// eventCh has a 100-slot buffer, so Publish without Start succeeds
	// until that buffer fills; it never blocks on a nonexistent reader
	// for the first call.
	done := make(chan struct{})
	go func() {
		b.Publish(&Event{Type: EventSiteErrored})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with room in the buffer")
	}
}

func TestBroker_PublishAfterStopDoesNotPanic(t *testing.T) {
	b := NewBroker()
	b.Start()
	b.Stop()

	// Publish after Stop should not panic; it either lands in the
	// buffered channel or is dropped via the stopCh select branch.
	assert.NotPanics(t, func() {
		b.Publish(&Event{Type: EventFileRemoved})
	})
}
