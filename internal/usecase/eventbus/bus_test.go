package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"shopdesk/internal/domain"
)

func newTestBus() *Bus {
	return New(slog.Default())
}

func newEvent(t domain.EventType) domain.Event {
	return domain.Event{Type: t, Epoch: "test-epoch"}
}

func TestDispatchInvokesAllHandlers(t *testing.T) {
	bus := newTestBus()

	var a, b atomic.Int32
	bus.Subscribe(domain.EventOrderCreated, func(_ context.Context, _ domain.Event) { a.Add(1) })
	bus.Subscribe(domain.EventOrderCreated, func(_ context.Context, _ domain.Event) { b.Add(1) })

	bus.Dispatch(context.Background(), newEvent(domain.EventOrderCreated))

	if a.Load() != 1 || b.Load() != 1 {
		t.Fatalf("expected both handlers invoked once, got a=%d b=%d", a.Load(), b.Load())
	}
}

func TestUnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	bus := newTestBus()

	var a, b atomic.Int32
	unsubA := bus.Subscribe(domain.EventOrderCreated, func(_ context.Context, _ domain.Event) { a.Add(1) })
	bus.Subscribe(domain.EventOrderCreated, func(_ context.Context, _ domain.Event) { b.Add(1) })

	unsubA()
	bus.Dispatch(context.Background(), newEvent(domain.EventOrderCreated))

	if a.Load() != 0 {
		t.Fatalf("expected unsubscribed handler not invoked, got %d", a.Load())
	}
	if b.Load() != 1 {
		t.Fatalf("expected remaining handler invoked once, got %d", b.Load())
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	h := func(_ context.Context, _ domain.Event) { got.Add(1) }
	unsub := bus.Subscribe(domain.EventBalanceUpdated, h)

	unsub()
	unsub() // second call is a no-op

	bus.Dispatch(context.Background(), newEvent(domain.EventBalanceUpdated))
	if got.Load() != 0 {
		t.Fatalf("expected no invocation after unsubscribe, got %d", got.Load())
	}
}

func TestDuplicateSubscribeDispatchesOnce(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	h := func(_ context.Context, _ domain.Event) { got.Add(1) }

	unsub1 := bus.Subscribe(domain.EventShopApproved, h)
	unsub2 := bus.Subscribe(domain.EventShopApproved, h)

	bus.Dispatch(context.Background(), newEvent(domain.EventShopApproved))
	if got.Load() != 1 {
		t.Fatalf("expected set semantics (one invocation), got %d", got.Load())
	}

	// Both unsubscribe tokens are valid; only after both fire is the
	// handler gone.
	unsub1()
	bus.Dispatch(context.Background(), newEvent(domain.EventShopApproved))
	if got.Load() != 2 {
		t.Fatalf("expected handler still live after one unsubscribe, got %d", got.Load())
	}

	unsub2()
	bus.Dispatch(context.Background(), newEvent(domain.EventShopApproved))
	if got.Load() != 2 {
		t.Fatalf("expected handler removed after both unsubscribes, got %d", got.Load())
	}
}

func TestEmptyHandlerSetIsRemoved(t *testing.T) {
	bus := newTestBus()

	unsub := bus.Subscribe(domain.EventProductDeleted, func(_ context.Context, _ domain.Event) {})
	unsub()

	bus.mu.RLock()
	_, exists := bus.handlers[domain.EventProductDeleted]
	bus.mu.RUnlock()
	if exists {
		t.Fatal("expected event type entry removed once its handler set is empty")
	}
}

func TestPanicIsolation(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventOrderCancelled, func(_ context.Context, _ domain.Event) {
		panic("boom")
	})
	bus.Subscribe(domain.EventOrderCancelled, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Dispatch(context.Background(), newEvent(domain.EventOrderCancelled))
	if got.Load() != 1 {
		t.Fatalf("expected second handler to run despite sibling panic, got %d", got.Load())
	}
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	var unsub func()
	unsub = bus.Subscribe(domain.EventShopUpdated, func(_ context.Context, _ domain.Event) {
		got.Add(1)
		unsub() // mutating the set mid-dispatch must be safe
	})
	bus.Subscribe(domain.EventShopUpdated, func(_ context.Context, _ domain.Event) { got.Add(1) })

	bus.Dispatch(context.Background(), newEvent(domain.EventShopUpdated))
	if got.Load() != 2 {
		t.Fatalf("expected both handlers invoked on snapshot, got %d", got.Load())
	}

	bus.Dispatch(context.Background(), newEvent(domain.EventShopUpdated))
	if got.Load() != 3 {
		t.Fatalf("expected only remaining handler on second dispatch, got %d", got.Load())
	}
}

func TestConcurrentSubscribeDispatch(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventNotificationNew, func(_ context.Context, _ domain.Event) { got.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Dispatch(context.Background(), newEvent(domain.EventNotificationNew))
		}()
	}
	wg.Wait()

	if got.Load() != 100 {
		t.Fatalf("expected 100 invocations, got %d", got.Load())
	}
}

func TestCloseStopsDispatch(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventOrderCreated, func(_ context.Context, _ domain.Event) { got.Add(1) })

	bus.Close()
	bus.Dispatch(context.Background(), newEvent(domain.EventOrderCreated))
	if got.Load() != 0 {
		t.Fatalf("expected no delivery after close, got %d", got.Load())
	}
}
