package reactor

import (
	"context"
	"fmt"
	"time"

	"shopdesk/internal/domain"
	"shopdesk/internal/usecase/eventbus"
	"shopdesk/internal/usecase/subscription"
)

// Shops reacts to shop lifecycle and moderation events.
type Shops struct {
	Deps
}

func NewShops(deps Deps) *Shops { return &Shops{deps} }

func (r *Shops) Name() string { return "shops" }

func (r *Shops) Arm(bus *eventbus.Bus) func() {
	return disarmAll([]closer{
		subscription.Bind(bus, domain.EventShopCreated, r.changed, r.Logger),
		subscription.Bind(bus, domain.EventShopUpdated, r.changed, r.Logger),
		subscription.Bind(bus, domain.EventShopApproved, r.approved, r.Logger),
		subscription.Bind(bus, domain.EventShopRejected, r.rejected, r.Logger),
		subscription.Bind(bus, domain.EventShopActivated, r.activated, r.Logger),
		subscription.Bind(bus, domain.EventShopDeactivated, r.deactivated, r.Logger),
	})
}

func (r *Shops) tags(p domain.ShopPayload) []string {
	return []string{"shops", fmt.Sprintf("shops:%d", p.ShopID)}
}

func (r *Shops) changed(ctx context.Context, p domain.ShopPayload) {
	r.invalidate(ctx, r.tags(p)...)
}

func (r *Shops) approved(ctx context.Context, p domain.ShopPayload) {
	r.invalidate(ctx, append(r.tags(p), "moderation")...)
	r.Notices.Notify(domain.Notice{
		Severity:  domain.SeveritySuccess,
		Title:     "Shop approved",
		Body:      fmt.Sprintf("%q is approved and may start selling.", p.ShopName),
		CreatedAt: time.Now(),
	})
}

func (r *Shops) rejected(ctx context.Context, p domain.ShopPayload) {
	r.invalidate(ctx, append(r.tags(p), "moderation")...)
	r.Notices.Notify(domain.Notice{
		Severity:  domain.SeverityWarning,
		Title:     "Shop rejected",
		Body:      fmt.Sprintf("%q was rejected: %s", p.ShopName, p.Reason),
		CreatedAt: time.Now(),
	})
}

func (r *Shops) activated(ctx context.Context, p domain.ShopPayload) {
	r.invalidate(ctx, r.tags(p)...)
	r.Notices.Notify(domain.Notice{
		Severity:  domain.SeveritySuccess,
		Title:     "Shop activated",
		Body:      fmt.Sprintf("%q is active again.", p.ShopName),
		CreatedAt: time.Now(),
	})
}

func (r *Shops) deactivated(ctx context.Context, p domain.ShopPayload) {
	r.invalidate(ctx, r.tags(p)...)
	r.Notices.Notify(domain.Notice{
		Severity:  domain.SeverityWarning,
		Title:     "Shop deactivated",
		Body:      fmt.Sprintf("%q was deactivated: %s", p.ShopName, p.Reason),
		CreatedAt: time.Now(),
	})
}
