package reactor

import (
	"context"
	"fmt"
	"time"

	"shopdesk/internal/domain"
	"shopdesk/internal/usecase/eventbus"
	"shopdesk/internal/usecase/subscription"
)

// Balances reacts to wallet movements.
type Balances struct {
	Deps
}

func NewBalances(deps Deps) *Balances { return &Balances{deps} }

func (r *Balances) Name() string { return "balances" }

func (r *Balances) Arm(bus *eventbus.Bus) func() {
	return disarmAll([]closer{
		subscription.Bind(bus, domain.EventBalanceUpdated, r.updated, r.Logger),
	})
}

func (r *Balances) updated(ctx context.Context, p domain.BalancePayload) {
	r.invalidate(ctx, "balance", "transactions", "dashboard")

	severity := domain.SeverityInfo
	verb := "changed by"
	if p.Amount > 0 {
		severity = domain.SeveritySuccess
		verb = "credited"
	} else if p.Amount < 0 {
		verb = "debited"
	}
	r.Notices.Notify(domain.Notice{
		Severity:  severity,
		Title:     "Balance updated",
		Body:      fmt.Sprintf("Balance %s %.2f, now %.2f.", verb, p.Amount, p.NewBalance),
		CreatedAt: time.Now(),
	})
}
