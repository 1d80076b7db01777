// Package events provides a thread-safe, non-blocking pub/sub bus for the
// plugin subsystem. Subscribers receive events on bounded channels; events
// are dropped rather than blocking a publisher when a subscriber lags.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Topic names an event stream.
type Topic string

const (
	// TopicAlert is published when the health monitor creates an alert.
	TopicAlert Topic = "alert"
	// TopicAlertResolved is published when an alert transitions to resolved.
	TopicAlertResolved Topic = "alertResolved"
	// TopicRefreshed is published after a registry refresh completes.
	TopicRefreshed Topic = "refreshed"
)

// Event is a single published event.
type Event struct {
	ID        string
	Topic     Topic
	Timestamp time.Time
	Payload   interface{}
}

// RefreshedEvent is the payload for TopicRefreshed.
type RefreshedEvent struct {
	LocalPlugins  int
	RemotePlugins int
	Sources       []string
	Duration      time.Duration
}

// Subscription is a handle to a topic subscription. Cancel removes the
// listener reference and closes C.
type Subscription struct {
	C      <-chan Event
	topic  Topic
	ch     chan Event
	bus    *Bus
	cancel sync.Once
}

// Cancel unsubscribes and closes the subscription channel. Safe to call
// more than once, and after the bus itself has closed.
func (s *Subscription) Cancel() {
	s.cancel.Do(func() {
		if s.ch == nil {
			return
		}
		// Only close the channel if it was still registered; otherwise the
		// bus already closed it during shutdown.
		if s.bus.remove(s.topic, s.ch) {
			close(s.ch)
		}
	})
}

// Bus is a bounded-buffer publish/subscribe event bus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Topic][]chan Event
	bufferSize  int
	closed      bool
}

// NewBus creates a bus whose subscriber channels buffer up to bufferSize
// events before new events are dropped.
func NewBus(bufferSize int) *Bus {
	if bufferSize < 1 {
		bufferSize = 16
	}
	return &Bus{
		subscribers: make(map[Topic][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a listener for topic.
func (b *Bus) Subscribe(topic Topic) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	if b.closed {
		close(ch)
		return &Subscription{C: ch, topic: topic, ch: nil, bus: b}
	}

	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return &Subscription{C: ch, topic: topic, ch: ch, bus: b}
}

// Publish delivers payload to every subscriber of topic without blocking.
// Subscribers whose buffers are full miss the event.
func (b *Bus) Publish(topic Topic, payload interface{}) {
	event := Event{
		ID:        uuid.NewString(),
		Topic:     topic,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- event:
		default:
			// Subscriber buffer full; drop rather than block the publisher.
		}
	}
}

// Close shuts the bus down and closes all subscriber channels. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true

	for _, chans := range b.subscribers {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subscribers = make(map[Topic][]chan Event)
}

func (b *Bus) remove(topic Topic, ch chan Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}

	chans := b.subscribers[topic]
	for i, c := range chans {
		if c == ch {
			b.subscribers[topic] = append(chans[:i], chans[i+1:]...)
			return true
		}
	}
	return false
}
