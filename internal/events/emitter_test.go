package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitWithoutSubscribersIsNoop(t *testing.T) {
	e := NewEmitter()
	assert.Equal(t, 0, e.SubscriberCount())

	// Must not panic or block.
	e.Emit(QueueSent, map[string]string{"email_id": "e1"})
}

func TestEmitFansOutToAllSubscribers(t *testing.T) {
	e := NewEmitter()
	ch1, cancel1 := e.Subscribe()
	ch2, cancel2 := e.Subscribe()
	defer cancel1()
	defer cancel2()

	assert.Equal(t, 2, e.SubscriberCount())
	e.Emit(QueueStateChange, "payload")

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, QueueStateChange, ev.Name)
			assert.Equal(t, "payload", ev.Payload)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	e := NewEmitter()
	ch, cancel := e.Subscribe()

	cancel()
	assert.Equal(t, 0, e.SubscriberCount())

	// Channel is closed after cancel.
	_, ok := <-ch
	assert.False(t, ok)

	// Cancelling twice is safe.
	cancel()
}

func TestEmitDoesNotBlockOnSlowSubscriber(t *testing.T) {
	e := NewEmitter()
	_, cancel := e.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Overflow the subscriber buffer without draining it.
		for i := 0; i < 200; i++ {
			e.Emit(QueueCountdown, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a slow subscriber")
	}
}

func TestSubscriberKeepsOrder(t *testing.T) {
	e := NewEmitter()
	ch, cancel := e.Subscribe()
	defer cancel()

	e.Emit(QueueSending, 1)
	e.Emit(QueueSent, 2)

	first := <-ch
	second := <-ch
	require.Equal(t, QueueSending, first.Name)
	require.Equal(t, QueueSent, second.Name)
}
