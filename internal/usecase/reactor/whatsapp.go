package reactor

import (
	"context"
	"fmt"
	"time"

	"shopdesk/internal/domain"
	"shopdesk/internal/usecase/eventbus"
	"shopdesk/internal/usecase/subscription"
)

// WhatsApp tracks the shop's messaging channel going up or down.
type WhatsApp struct {
	Deps
}

func NewWhatsApp(deps Deps) *WhatsApp { return &WhatsApp{deps} }

func (r *WhatsApp) Name() string { return "whatsapp" }

func (r *WhatsApp) Arm(bus *eventbus.Bus) func() {
	return disarmAll([]closer{
		subscription.Bind(bus, domain.EventWhatsAppStatus, r.statusChanged, r.Logger),
	})
}

func (r *WhatsApp) statusChanged(ctx context.Context, p domain.WhatsAppStatusPayload) {
	r.invalidate(ctx, fmt.Sprintf("whatsapp:shop:%d", p.ShopID))

	severity := domain.SeverityInfo
	body := fmt.Sprintf("WhatsApp status is now %s.", p.Status)
	switch p.Status {
	case "connected":
		severity = domain.SeveritySuccess
		body = fmt.Sprintf("WhatsApp connected on %s.", p.PhoneNumber)
	case "disconnected":
		severity = domain.SeverityWarning
		body = "WhatsApp disconnected. Customers cannot be reached until it is relinked."
	}
	r.Notices.Notify(domain.Notice{
		Severity:  severity,
		Title:     "WhatsApp status",
		Body:      body,
		CreatedAt: time.Now(),
	})
}
