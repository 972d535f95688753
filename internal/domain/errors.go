package domain

import "fmt"

// Sentinel errors for the domain layer.
var (
	// Schema rejection. Logged and dropped, never surfaced to the UI.
	ErrUnknownEventType = fmt.Errorf("unknown event type")
	ErrMalformedPayload = fmt.Errorf("malformed event payload")

	// Transport errors. Handled inside the connection core; only the
	// exhausted-reconnect condition escalates to a user-visible notice.
	ErrNotConnected       = fmt.Errorf("not connected")
	ErrReconnectExhausted = fmt.Errorf("reconnect attempts exhausted")

	// Configuration and collaborators.
	ErrConfigLoad        = fmt.Errorf("failed to load configuration")
	ErrInvalidClientType = fmt.Errorf("invalid client type")
	ErrCacheUnavailable  = fmt.Errorf("cache backend unavailable")
	ErrNoticeStore       = fmt.Errorf("notice store failed")
)

// RejectionError describes why an inbound frame was rejected by the
// schema registry. It wraps one of the schema sentinels.
type RejectionError struct {
	EventType string // raw wire tag, may be unknown
	Reason    error  // ErrUnknownEventType or ErrMalformedPayload
	Detail    string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("event %q: %v", e.EventType, e.Reason)
	}
	return fmt.Sprintf("event %q: %v: %s", e.EventType, e.Reason, e.Detail)
}

func (e *RejectionError) Unwrap() error { return e.Reason }
