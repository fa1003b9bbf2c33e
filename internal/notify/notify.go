// Package notify fans out artwork and provider change events to observers
// such as widgets and notification surfaces. Publishing never blocks the
// loader's commit path: slow subscribers miss events rather than stall a load.
package notify

import (
	"sync"
	"sync/atomic"
)

// EventType identifies what changed
type EventType string

// Event types
const (
	EventArtworkChanged      EventType = "artwork_changed"
	EventProviderChanged     EventType = "provider_changed"
	EventProviderUnreachable EventType = "provider_unreachable"
)

// Event describes a single logical change
type Event struct {
	Type          EventType
	ComponentName string
	ArtworkID     int64
}

// Notifier is an interface for publishing change events
type Notifier interface {
	Publish(event Event)
}

const subscriberBuffer = 16

// Bus is an in-memory Notifier with fan-out to subscribers
type Bus struct {
	mu          sync.Mutex
	subscribers map[int]*subscriber
	nextID      int
	closed      bool
	dropped     uint64
}

type subscriber struct {
	types   map[EventType]bool
	channel chan Event
}

// NewBus returns a new Bus instance
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[int]*subscriber),
	}
}

// Publish delivers an event to every subscriber interested in its type.
// Subscribers that can't keep up miss the event.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		if len(sub.types) > 0 && !sub.types[event.Type] {
			continue
		}

		select {
		case sub.channel <- event:
		default:
			atomic.AddUint64(&b.dropped, 1)
		}
	}
}

// Dropped returns how many events were discarded because a subscriber's
// buffer was full
func (b *Bus) Dropped() uint64 {
	return atomic.LoadUint64(&b.dropped)
}

// Subscribe registers interest in the given event types, or all events when
// none are given. The returned function cancels the subscription and closes
// the channel.
func (b *Bus) Subscribe(types ...EventType) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{
		types:   make(map[EventType]bool, len(types)),
		channel: make(chan Event, subscriberBuffer),
	}
	for _, typ := range types {
		sub.types[typ] = true
	}

	id := b.nextID
	b.nextID++
	b.subscribers[id] = sub

	return sub.channel, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if _, exists := b.subscribers[id]; exists {
			delete(b.subscribers, id)
			close(sub.channel)
		}
	}
}

// Close cancels all subscriptions
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub.channel)
	}
}
