// Package event provides a synchronous in-process event bus for
// observability notifications. Cache, queue, and engine components publish
// fire-and-forget events; subscribers receive them in the publishing
// goroutine and must not block.
package event

import (
	"log/slog"
	"sync"
	"time"
)

// Type identifies an observability event.
type Type string

// Cache events.
const (
	CacheHit     Type = "cache.hit"
	CacheMiss    Type = "cache.miss"
	CacheSet     Type = "cache.set"
	CacheError   Type = "cache.error"
	CacheWarmed  Type = "cache.warmed"
	CacheCleared Type = "cache.cleared"
)

// Translation events.
const (
	TranslationSuccess Type = "translation.success"
	TranslationFailed  Type = "translation.failed"
	TranslationRetry   Type = "translation.retry"
)

// Queue events.
const (
	QueueActive       Type = "queue.active"
	QueueIdle         Type = "queue.idle"
	QueuePaused       Type = "queue.paused"
	QueueResumed      Type = "queue.resumed"
	QueueCleared      Type = "queue.cleared"
	QueueBackpressure Type = "queue.backpressure"
)

// Adapter events.
const (
	AdapterRegistered Type = "adapter.registered"
)

// Health events.
const (
	HealthChanged Type = "health.changed"
)

// Event is a notification delivered to subscribers. Fields is optional
// structured detail; handlers must treat it as read-only.
type Event struct {
	Type      Type
	Timestamp time.Time
	Fields    map[string]any
}

// Handler receives events. Handlers run synchronously on the publishing
// goroutine; a blocking handler stalls the component that emitted the event.
type Handler func(Event)

// Bus is a thread-safe registry of event handlers. The zero value is not
// usable; construct with NewBus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]subscription
	all      []subscription
	nextID   int
	logger   *slog.Logger
}

type subscription struct {
	id int
	fn Handler
}

// NewBus creates an event bus. A nil logger defaults to slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[Type][]subscription),
		logger:   logger,
	}
}

// Subscribe registers a handler for a specific event type and returns an
// unsubscribe function.
func (b *Bus) Subscribe(t Type, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[t]
		for i, s := range subs {
			if s.id == id {
				b.handlers[t] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.all {
			if s.id == id {
				b.all = append(b.all[:i], b.all[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers an event to all matching subscribers. Handler panics are
// recovered and logged so a broken subscriber cannot take down the emitting
// component.
func (b *Bus) Publish(t Type, fields map[string]any) {
	ev := Event{Type: t, Timestamp: time.Now(), Fields: fields}

	b.mu.RLock()
	subs := make([]subscription, 0, len(b.handlers[t])+len(b.all))
	subs = append(subs, b.handlers[t]...)
	subs = append(subs, b.all...)
	b.mu.RUnlock()

	for _, s := range subs {
		b.dispatch(s, ev)
	}
}

func (b *Bus) dispatch(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", string(ev.Type), "panic", r)
		}
	}()
	s.fn(ev)
}
