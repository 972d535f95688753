package domain

// ConnState is the connection core's externally observable state.
// Transitions are owned exclusively by the connection core.
type ConnState string

const (
	ConnIdle       ConnState = "idle"
	ConnConnecting ConnState = "connecting"
	ConnOpen       ConnState = "open"
	ConnClosing    ConnState = "closing"
	ConnClosed     ConnState = "closed"
)

// ClientType tags the connection with the caller's role. It is embedded
// in the connection target and remembered across reconnect attempts.
type ClientType string

const (
	ClientUser  ClientType = "user"
	ClientShop  ClientType = "shop"
	ClientAdmin ClientType = "admin"
)

// ValidClientType reports whether t is one of the known roles.
func ValidClientType(t ClientType) bool {
	switch t {
	case ClientUser, ClientShop, ClientAdmin:
		return true
	}
	return false
}

// RealtimeClient is the narrow view of the connection core that
// consumers (reactor manager, housekeeping) depend on. The concrete
// client is constructed once by the composition root and passed down;
// there is no package-level singleton.
type RealtimeClient interface {
	// Connected reports whether the transport is currently open.
	Connected() bool
	// State returns the current connection state.
	State() ConnState
	// OnStateChange registers a callback invoked on every state
	// transition. Returns an unregister function.
	OnStateChange(fn func(ConnState)) func()
	// Send serializes {event, data} and writes it if the transport is
	// open; otherwise it logs a warning and drops the frame.
	Send(eventType EventType, payload any)
}
