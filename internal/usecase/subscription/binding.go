// Package subscription layers typed, replaceable callbacks on top of
// the raw event bus. A Binding subscribes once for its whole lifetime;
// swapping the callback never churns the underlying handler set.
package subscription

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"shopdesk/internal/domain"
	"shopdesk/internal/usecase/eventbus"
)

// Binding is a live typed subscription for one event type. The zero
// value is not usable; construct with Bind.
type Binding[T any] struct {
	callback atomic.Pointer[func(context.Context, T)]
	unsub    func()
	once     sync.Once
}

// Bind subscribes a typed callback for eventType. The bus sees exactly
// one handler per Binding; Update swaps the callback in place and
// Close tears the subscription down.
func Bind[T any](bus *eventbus.Bus, eventType domain.EventType, fn func(context.Context, T), logger *slog.Logger) *Binding[T] {
	b := &Binding[T]{}
	b.callback.Store(&fn)
	b.unsub = bus.Subscribe(eventType, func(ctx context.Context, ev domain.Event) {
		payload, ok := ev.Payload.(T)
		if !ok {
			logger.Warn("typed binding payload mismatch",
				"event", string(ev.Type),
				"epoch", ev.Epoch,
			)
			return
		}
		cb := b.callback.Load()
		if cb == nil {
			return
		}
		(*cb)(ctx, payload)
	})
	return b
}

// Update replaces the callback. Events already in flight may still see
// the previous callback; every later event sees the new one.
func (b *Binding[T]) Update(fn func(context.Context, T)) {
	b.callback.Store(&fn)
}

// Close unsubscribes from the bus. Safe to call more than once.
func (b *Binding[T]) Close() {
	b.once.Do(b.unsub)
}
