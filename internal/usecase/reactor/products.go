package reactor

import (
	"context"
	"fmt"
	"time"

	"shopdesk/internal/domain"
	"shopdesk/internal/usecase/eventbus"
	"shopdesk/internal/usecase/subscription"
)

// Products reacts to catalog changes and moderation decisions.
type Products struct {
	Deps
}

func NewProducts(deps Deps) *Products { return &Products{deps} }

func (r *Products) Name() string { return "products" }

func (r *Products) Arm(bus *eventbus.Bus) func() {
	return disarmAll([]closer{
		subscription.Bind(bus, domain.EventProductCreated, r.changed, r.Logger),
		subscription.Bind(bus, domain.EventProductUpdated, r.changed, r.Logger),
		subscription.Bind(bus, domain.EventProductDeleted, r.changed, r.Logger),
		subscription.Bind(bus, domain.EventProductApproved, r.approved, r.Logger),
		subscription.Bind(bus, domain.EventProductRejected, r.rejected, r.Logger),
	})
}

func (r *Products) tags(p domain.ProductPayload) []string {
	return []string{"products", fmt.Sprintf("products:shop:%d", p.ShopID)}
}

func (r *Products) changed(ctx context.Context, p domain.ProductPayload) {
	r.invalidate(ctx, r.tags(p)...)
}

func (r *Products) approved(ctx context.Context, p domain.ProductPayload) {
	r.invalidate(ctx, append(r.tags(p), "moderation")...)
	r.Notices.Notify(domain.Notice{
		Severity:  domain.SeveritySuccess,
		Title:     "Product approved",
		Body:      fmt.Sprintf("%q passed moderation and is live.", p.ProductName),
		CreatedAt: time.Now(),
	})
}

func (r *Products) rejected(ctx context.Context, p domain.ProductPayload) {
	r.invalidate(ctx, append(r.tags(p), "moderation")...)
	body := fmt.Sprintf("%q was rejected.", p.ProductName)
	if p.RejectionReason != "" {
		body = fmt.Sprintf("%q was rejected: %s", p.ProductName, p.RejectionReason)
	}
	r.Notices.Notify(domain.Notice{
		Severity:  domain.SeverityWarning,
		Title:     "Product rejected",
		Body:      body,
		CreatedAt: time.Now(),
	})
}
