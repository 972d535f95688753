package eventbus

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"shopdesk/internal/domain"
)

// entry is one registered handler for an event type. Handlers are
// deduplicated by function identity: subscribing the same func twice
// dispatches once but hands out independent unsubscribe tokens, tracked
// by refs.
type entry struct {
	fn   uintptr
	refs int
	h    domain.EventHandler
}

// Bus maps event types to handler sets and fans validated events out to
// them. Dispatch is synchronous so frames are delivered to handlers in
// the order the transport produced them; per-handler panics are
// recovered so one handler cannot break delivery to its siblings.
type Bus struct {
	mu       sync.RWMutex
	handlers map[domain.EventType][]*entry
	logger   *slog.Logger
	closed   atomic.Bool
}

// New creates an event bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[domain.EventType][]*entry),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type and returns an
// unsubscribe function. The returned function is idempotent: the second
// and later calls are no-ops.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	// Pointer() documents itself as "not necessarily enough to identify a
	// single function uniquely": distinct closures over the same code can
	// collide in principle. gc returns a distinct funcval pointer per
	// closure instance, which is what the dedup relies on; a collision
	// would merge two subscriptions, never lose dispatches.
	fn := reflect.ValueOf(handler).Pointer()

	b.mu.Lock()
	var ent *entry
	for _, e := range b.handlers[eventType] {
		if e.fn == fn {
			ent = e
			break
		}
	}
	if ent == nil {
		ent = &entry{fn: fn, h: handler}
		b.handlers[eventType] = append(b.handlers[eventType], ent)
	}
	ent.refs++
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.unsubscribe(eventType, ent)
		})
	}
}

func (b *Bus) unsubscribe(eventType domain.EventType, ent *entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ent.refs--
	if ent.refs > 0 {
		return
	}
	entries := b.handlers[eventType]
	for i, e := range entries {
		if e == ent {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		// No dangling empty entries.
		delete(b.handlers, eventType)
		return
	}
	b.handlers[eventType] = entries
}

// Dispatch invokes every handler registered for the event's type, in
// subscription order, against a snapshot of the handler set: a handler
// that subscribes or unsubscribes during its own invocation cannot
// corrupt the iteration. Panicking handlers are recovered and logged.
func (b *Bus) Dispatch(ctx context.Context, event domain.Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	entries := b.handlers[event.Type]
	snapshot := make([]domain.EventHandler, len(entries))
	for i, e := range entries {
		snapshot[i] = e.h
	}
	b.mu.RUnlock()

	for _, h := range snapshot {
		b.invoke(ctx, event, h)
	}
}

func (b *Bus) invoke(ctx context.Context, event domain.Event, h domain.EventHandler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", string(event.Type),
				"panic", r,
			)
		}
	}()
	h(ctx, event)
}

// HandlerCount returns the number of distinct handlers registered for
// an event type.
func (b *Bus) HandlerCount(eventType domain.EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Close prevents further dispatches. Registered handlers stay in place;
// the connection core drops frames once its transport is gone, so a
// closed bus simply never sees them.
func (b *Bus) Close() {
	b.closed.Store(true)
}
