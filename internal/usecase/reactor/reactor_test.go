package reactor

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopdesk/internal/domain"
	"shopdesk/internal/usecase/eventbus"
)

type fakeInvalidator struct {
	mu   sync.Mutex
	tags []string
}

func (f *fakeInvalidator) Invalidate(_ context.Context, tags ...string) error {
	f.mu.Lock()
	f.tags = append(f.tags, tags...)
	f.mu.Unlock()
	return nil
}

func (f *fakeInvalidator) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tags...)
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (f *fakeNotifier) Notify(n domain.Notice) {
	f.mu.Lock()
	f.notices = append(f.notices, n)
	f.mu.Unlock()
}

func (f *fakeNotifier) all() []domain.Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Notice(nil), f.notices...)
}

// fakeClient drives state transitions by hand.
type fakeClient struct {
	mu    sync.Mutex
	state domain.ConnState
	subs  []func(domain.ConnState)
}

func (f *fakeClient) Connected() bool         { return f.State() == domain.ConnOpen }
func (f *fakeClient) State() domain.ConnState { f.mu.Lock(); defer f.mu.Unlock(); return f.state }
func (f *fakeClient) Send(domain.EventType, any) {}

func (f *fakeClient) OnStateChange(fn func(domain.ConnState)) func() {
	f.mu.Lock()
	f.subs = append(f.subs, fn)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeClient) transition(s domain.ConnState) {
	f.mu.Lock()
	f.state = s
	subs := append([](func(domain.ConnState))(nil), f.subs...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

func newDeps() (Deps, *fakeInvalidator, *fakeNotifier) {
	inv := &fakeInvalidator{}
	not := &fakeNotifier{}
	return Deps{Cache: inv, Notices: not, Logger: slog.Default()}, inv, not
}

func TestManagerArmsOnOpenDisarmsOnClose(t *testing.T) {
	deps, inv, _ := newDeps()
	bus := eventbus.New(slog.Default())
	m := NewManager(bus, slog.Default(), All(deps)...)
	defer m.Close()

	client := &fakeClient{state: domain.ConnIdle}
	m.Watch(client)
	require.False(t, m.Armed())

	client.transition(domain.ConnConnecting)
	require.False(t, m.Armed())

	client.transition(domain.ConnOpen)
	require.True(t, m.Armed())
	assert.Positive(t, bus.HandlerCount(domain.EventOrderCreated))

	bus.Dispatch(context.Background(), domain.Event{
		Type:    domain.EventOrderUpdated,
		Payload: domain.OrderPayload{OrderID: 1, ShopID: 9},
	})
	assert.Contains(t, inv.seen(), "orders:shop:9")

	client.transition(domain.ConnClosed)
	require.False(t, m.Armed())
	assert.Zero(t, bus.HandlerCount(domain.EventOrderCreated))

	// Re-armed on reconnect.
	client.transition(domain.ConnOpen)
	require.True(t, m.Armed())
}

func TestDisarmedReactorsReceiveNothing(t *testing.T) {
	deps, inv, not := newDeps()
	bus := eventbus.New(slog.Default())
	m := NewManager(bus, slog.Default(), All(deps)...)
	defer m.Close()

	client := &fakeClient{}
	m.Watch(client)
	client.transition(domain.ConnOpen)
	client.transition(domain.ConnClosed)

	bus.Dispatch(context.Background(), domain.Event{
		Type:    domain.EventOrderCreated,
		Payload: domain.OrderPayload{OrderID: 1, ShopID: 9},
	})
	assert.Empty(t, inv.seen())
	assert.Empty(t, not.all())
}

func TestOrderCreatedRaisesNoticeAndInvalidates(t *testing.T) {
	deps, inv, not := newDeps()
	bus := eventbus.New(slog.Default())
	disarm := NewOrders(deps).Arm(bus)
	defer disarm()

	bus.Dispatch(context.Background(), domain.Event{
		Type: domain.EventOrderCreated,
		Payload: domain.OrderPayload{
			OrderID: 7, OrderNumber: "ORD-7", ShopID: 3, TotalAmount: 120.5,
		},
	})

	assert.ElementsMatch(t, []string{"orders", "orders:shop:3", "dashboard"}, inv.seen())
	notices := not.all()
	require.Len(t, notices, 1)
	assert.Equal(t, domain.SeverityInfo, notices[0].Severity)
	assert.Contains(t, notices[0].Body, "ORD-7")
}

func TestProductRejectionCarriesReason(t *testing.T) {
	deps, _, not := newDeps()
	bus := eventbus.New(slog.Default())
	disarm := NewProducts(deps).Arm(bus)
	defer disarm()

	bus.Dispatch(context.Background(), domain.Event{
		Type: domain.EventProductRejected,
		Payload: domain.ProductPayload{
			ProductID: 2, ProductName: "Green Tea", ShopID: 3,
			ModerationStatus: "rejected", RejectionReason: "missing photos",
		},
	})

	notices := not.all()
	require.Len(t, notices, 1)
	assert.Equal(t, domain.SeverityWarning, notices[0].Severity)
	assert.Contains(t, notices[0].Body, "missing photos")
}

func TestBalanceCreditIsSuccess(t *testing.T) {
	deps, inv, not := newDeps()
	bus := eventbus.New(slog.Default())
	disarm := NewBalances(deps).Arm(bus)
	defer disarm()

	bus.Dispatch(context.Background(), domain.Event{
		Type: domain.EventBalanceUpdated,
		Payload: domain.BalancePayload{
			OldBalance: 10, NewBalance: 60, Amount: 50,
		},
	})

	assert.Contains(t, inv.seen(), "balance")
	notices := not.all()
	require.Len(t, notices, 1)
	assert.Equal(t, domain.SeveritySuccess, notices[0].Severity)
}

func TestWhatsAppDisconnectWarns(t *testing.T) {
	deps, inv, not := newDeps()
	bus := eventbus.New(slog.Default())
	disarm := NewWhatsApp(deps).Arm(bus)
	defer disarm()

	bus.Dispatch(context.Background(), domain.Event{
		Type: domain.EventWhatsAppStatus,
		Payload: domain.WhatsAppStatusPayload{
			ShopID: 4, Status: "disconnected", Timestamp: time.Now().Format(time.RFC3339),
		},
	})

	assert.Contains(t, inv.seen(), "whatsapp:shop:4")
	notices := not.all()
	require.Len(t, notices, 1)
	assert.Equal(t, domain.SeverityWarning, notices[0].Severity)
}
