package reactor

import (
	"context"
	"fmt"
	"time"

	"shopdesk/internal/domain"
	"shopdesk/internal/usecase/eventbus"
	"shopdesk/internal/usecase/subscription"
)

// Settings reacts to platform configuration changes pushed by admins.
type Settings struct {
	Deps
}

func NewSettings(deps Deps) *Settings { return &Settings{deps} }

func (r *Settings) Name() string { return "settings" }

func (r *Settings) Arm(bus *eventbus.Bus) func() {
	return disarmAll([]closer{
		subscription.Bind(bus, domain.EventSettingsUpdated, r.updated, r.Logger),
	})
}

func (r *Settings) updated(ctx context.Context, p domain.SettingsPayload) {
	r.invalidate(ctx, "settings", "settings:"+p.SettingKey)
	r.Notices.Notify(domain.Notice{
		Severity:  domain.SeverityInfo,
		Title:     "Platform setting changed",
		Body:      fmt.Sprintf("%s changed from %v to %v.", p.SettingKey, p.OldValue, p.NewValue),
		CreatedAt: time.Now(),
	})
}
