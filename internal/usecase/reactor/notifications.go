package reactor

import (
	"context"
	"time"

	"shopdesk/internal/domain"
	"shopdesk/internal/usecase/eventbus"
	"shopdesk/internal/usecase/subscription"
)

// Notifications forwards server-side notifications into the notice
// stream and refreshes the unread counter.
type Notifications struct {
	Deps
}

func NewNotifications(deps Deps) *Notifications { return &Notifications{deps} }

func (r *Notifications) Name() string { return "notifications" }

func (r *Notifications) Arm(bus *eventbus.Bus) func() {
	return disarmAll([]closer{
		subscription.Bind(bus, domain.EventNotificationNew, r.arrived, r.Logger),
	})
}

func (r *Notifications) arrived(ctx context.Context, p domain.NotificationPayload) {
	r.invalidate(ctx, "notifications", "notifications:unread")
	r.Notices.Notify(domain.Notice{
		Severity:  domain.SeverityInfo,
		Title:     p.Title,
		Body:      p.Message,
		CreatedAt: time.Now(),
	})
}
