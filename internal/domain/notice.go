package domain

import (
	"context"
	"time"
)

// Severity classifies a user-facing notice.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notice is a human-readable message destined for the admin UI's
// notification surface.
type Notice struct {
	Severity  Severity
	Title     string
	Body      string
	CreatedAt time.Time
}

// Notifier delivers notices to the user-facing notification surface.
// Implementations must never block event delivery.
type Notifier interface {
	Notify(notice Notice)
}

// Invalidator marks cached query results as stale. Reactors call it
// with the tags of every query affected by an event; the front end
// refetches on next read.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}
