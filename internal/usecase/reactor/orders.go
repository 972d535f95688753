package reactor

import (
	"context"
	"fmt"
	"time"

	"shopdesk/internal/domain"
	"shopdesk/internal/usecase/eventbus"
	"shopdesk/internal/usecase/subscription"
)

type closer interface{ Close() }

func disarmAll(bindings []closer) func() {
	return func() {
		for _, b := range bindings {
			b.Close()
		}
	}
}

// Orders reacts to the order lifecycle: every event refreshes the
// order lists, and state changes surface as operator notices.
type Orders struct {
	Deps
}

func NewOrders(deps Deps) *Orders { return &Orders{deps} }

func (r *Orders) Name() string { return "orders" }

func (r *Orders) Arm(bus *eventbus.Bus) func() {
	return disarmAll([]closer{
		subscription.Bind(bus, domain.EventOrderCreated, r.created, r.Logger),
		subscription.Bind(bus, domain.EventOrderUpdated, r.updated, r.Logger),
		subscription.Bind(bus, domain.EventOrderCompleted, r.completed, r.Logger),
		subscription.Bind(bus, domain.EventOrderCancelled, r.cancelled, r.Logger),
	})
}

func (r *Orders) tags(p domain.OrderPayload) []string {
	return []string{"orders", fmt.Sprintf("orders:shop:%d", p.ShopID), "dashboard"}
}

func (r *Orders) created(ctx context.Context, p domain.OrderPayload) {
	r.invalidate(ctx, r.tags(p)...)
	r.Notices.Notify(domain.Notice{
		Severity:  domain.SeverityInfo,
		Title:     "New order",
		Body:      fmt.Sprintf("Order %s (%.2f) is waiting for processing.", p.OrderNumber, p.TotalAmount),
		CreatedAt: time.Now(),
	})
}

func (r *Orders) updated(ctx context.Context, p domain.OrderPayload) {
	r.invalidate(ctx, r.tags(p)...)
}

func (r *Orders) completed(ctx context.Context, p domain.OrderPayload) {
	r.invalidate(ctx, r.tags(p)...)
	r.Notices.Notify(domain.Notice{
		Severity:  domain.SeveritySuccess,
		Title:     "Order completed",
		Body:      fmt.Sprintf("Order %s was completed.", p.OrderNumber),
		CreatedAt: time.Now(),
	})
}

func (r *Orders) cancelled(ctx context.Context, p domain.OrderPayload) {
	r.invalidate(ctx, r.tags(p)...)
	r.Notices.Notify(domain.Notice{
		Severity:  domain.SeverityWarning,
		Title:     "Order cancelled",
		Body:      fmt.Sprintf("Order %s was cancelled.", p.OrderNumber),
		CreatedAt: time.Now(),
	})
}
