package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives events published on the bus.
type Handler func(event *Event)

// SubscriptionID identifies a handler registration.
type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Bus is an in-process publish/subscribe bus.
// Handlers run synchronously on the emitting goroutine and must not block.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]subscription
	nextID   SubscriptionID
	log      zerolog.Logger
}

// NewBus creates an empty bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]subscription),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})
	return id
}

// Unsubscribe removes a registration. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.handlers {
		for i, sub := range subs {
			if sub.id != id {
				continue
			}
			remaining := make([]subscription, 0, len(subs)-1)
			remaining = append(remaining, subs[:i]...)
			remaining = append(remaining, subs[i+1:]...)
			if len(remaining) == 0 {
				delete(b.handlers, eventType)
			} else {
				b.handlers[eventType] = remaining
			}
			return
		}
	}
}

// SubscriberCount returns the number of handlers for an event type.
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Emit publishes an event to every handler subscribed to its type.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[eventType]))
	copy(subs, b.handlers[eventType])
	b.mu.RUnlock()

	for _, sub := range subs {
		b.dispatch(sub, event)
	}
}

// dispatch runs one handler, isolating the bus from handler panics.
func (b *Bus) dispatch(sub subscription, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("event_type", string(event.Type)).
				Uint64("subscription", uint64(sub.id)).
				Msg("Event handler panicked")
		}
	}()
	sub.handler(event)
}
