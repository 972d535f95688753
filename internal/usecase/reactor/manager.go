// Package reactor holds the per-domain responses to realtime events:
// which caches an event invalidates and which operator notices it
// raises. Reactors are armed only while the connection is open and are
// re-armed automatically after a reconnect.
package reactor

import (
	"context"
	"log/slog"
	"sync"

	"shopdesk/internal/domain"
	"shopdesk/internal/usecase/eventbus"
)

// Reactor wires one domain's event handling into the bus. Arm returns
// the disarm function.
type Reactor interface {
	Name() string
	Arm(bus *eventbus.Bus) func()
}

// Deps is the shared toolbox every reactor works with.
type Deps struct {
	Cache   domain.Invalidator
	Notices domain.Notifier
	Logger  *slog.Logger
}

// invalidate fires cache invalidation and logs failures; a broken
// cache never blocks event handling.
func (d Deps) invalidate(ctx context.Context, tags ...string) {
	if err := d.Cache.Invalidate(ctx, tags...); err != nil {
		d.Logger.Warn("cache invalidation failed", "tags", tags, "error", err)
	}
}

// Manager arms and disarms a fixed set of reactors in lockstep with
// the connection state.
type Manager struct {
	bus      *eventbus.Bus
	logger   *slog.Logger
	reactors []Reactor

	mu     sync.Mutex
	disarm []func()
	cancel func()
}

// NewManager builds a manager over the given reactors. Nothing is
// armed until the watched connection opens.
func NewManager(bus *eventbus.Bus, logger *slog.Logger, reactors ...Reactor) *Manager {
	return &Manager{bus: bus, logger: logger, reactors: reactors}
}

// Watch follows the client's connection state: reactors arm on every
// open (including reconnects) and disarm on every close.
func (m *Manager) Watch(client domain.RealtimeClient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	m.cancel = client.OnStateChange(func(s domain.ConnState) {
		switch s {
		case domain.ConnOpen:
			m.arm()
		case domain.ConnClosed:
			m.disarmAll()
		}
	})
}

func (m *Manager) arm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.disarm) > 0 {
		return
	}
	for _, r := range m.reactors {
		m.disarm = append(m.disarm, r.Arm(m.bus))
		m.logger.Debug("reactor armed", "reactor", r.Name())
	}
}

func (m *Manager) disarmAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.disarm {
		d()
	}
	m.disarm = nil
}

// Armed reports whether the reactors are currently live.
func (m *Manager) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.disarm) > 0
}

// All builds the full reactor set over one shared toolbox.
func All(deps Deps) []Reactor {
	return []Reactor{
		NewOrders(deps),
		NewProducts(deps),
		NewBalances(deps),
		NewShops(deps),
		NewNotifications(deps),
		NewWhatsApp(deps),
		NewSettings(deps),
	}
}

// Close stops watching the connection and disarms everything.
func (m *Manager) Close() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.disarmAll()
}
