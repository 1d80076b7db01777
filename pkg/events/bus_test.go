package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	sub := bus.Subscribe(TopicAlert)
	bus.Publish(TopicAlert, "payload")

	select {
	case ev := <-sub.C:
		assert.Equal(t, TopicAlert, ev.Topic)
		assert.Equal(t, "payload", ev.Payload)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestTopicsAreIndependent(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	alertSub := bus.Subscribe(TopicAlert)
	refreshSub := bus.Subscribe(TopicRefreshed)

	bus.Publish(TopicRefreshed, RefreshedEvent{LocalPlugins: 3})

	select {
	case ev := <-refreshSub.C:
		payload, ok := ev.Payload.(RefreshedEvent)
		require.True(t, ok)
		assert.Equal(t, 3, payload.LocalPlugins)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case <-alertSub.C:
		t.Fatal("alert subscriber received refresh event")
	default:
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()

	sub := bus.Subscribe(TopicAlert)
	bus.Publish(TopicAlert, 1)
	bus.Publish(TopicAlert, 2) // dropped, nothing draining

	ev := <-sub.C
	assert.Equal(t, 1, ev.Payload)

	select {
	case <-sub.C:
		t.Fatal("second event should have been dropped")
	default:
	}
}

func TestCancelRemovesListener(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	sub := bus.Subscribe(TopicAlert)
	sub.Cancel()
	sub.Cancel() // idempotent

	bus.Publish(TopicAlert, "after cancel")

	_, open := <-sub.C
	assert.False(t, open, "channel should be closed after cancel")
}

func TestCloseIsIdempotentAndClosesSubscribers(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe(TopicAlertResolved)

	bus.Close()
	bus.Close()

	_, open := <-sub.C
	assert.False(t, open)

	// Cancel after close must not panic.
	sub.Cancel()

	// Publish after close is a no-op.
	bus.Publish(TopicAlertResolved, "ignored")
}

func TestSubscribeAfterClose(t *testing.T) {
	bus := NewBus(4)
	bus.Close()

	sub := bus.Subscribe(TopicAlert)
	_, open := <-sub.C
	assert.False(t, open)
	sub.Cancel()
}
