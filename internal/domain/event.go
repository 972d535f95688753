package domain

import "context"

// EventType identifies the kind of event pushed by the platform.
type EventType string

const (
	// Product lifecycle and moderation.
	EventProductCreated  EventType = "product.created"
	EventProductUpdated  EventType = "product.updated"
	EventProductDeleted  EventType = "product.deleted"
	EventProductApproved EventType = "product.approved"
	EventProductRejected EventType = "product.rejected"

	// Orders.
	EventOrderCreated   EventType = "order.created"
	EventOrderUpdated   EventType = "order.updated"
	EventOrderCompleted EventType = "order.completed"
	EventOrderCancelled EventType = "order.cancelled"

	// Billing.
	EventBalanceUpdated EventType = "balance.updated"

	// Shop lifecycle and moderation.
	EventShopCreated     EventType = "shop.created"
	EventShopUpdated     EventType = "shop.updated"
	EventShopApproved    EventType = "shop.approved"
	EventShopRejected    EventType = "shop.rejected"
	EventShopActivated   EventType = "shop.activated"
	EventShopDeactivated EventType = "shop.deactivated"

	// Notifications and settings.
	EventNotificationNew EventType = "notification.new"
	EventSettingsUpdated EventType = "settings.updated"

	// WhatsApp integration.
	EventWhatsAppStatus EventType = "whatsapp_status_changed"

	// Session handshake.
	EventConnected EventType = "connected"

	// Control frames. Never reach subscribers.
	EventPing EventType = "ping"
	EventPong EventType = "pong"
)

// Event is a validated, typed event as produced by the schema registry.
// Payload holds the concrete payload struct for Type; it is never
// constructed except through successful validation.
type Event struct {
	Type EventType
	// Epoch identifies the connection epoch that delivered the event.
	// Ordering is only guaranteed within one epoch.
	Epoch   string
	Payload any
}

// IsControl reports whether the event is a ping/pong liveness frame.
// Control frames are filtered out before dispatch.
func (e Event) IsControl() bool {
	return e.Type == EventPing || e.Type == EventPong
}

// EventHandler is a callback invoked for each dispatched event.
type EventHandler func(ctx context.Context, event Event)

// ProductPayload carries product lifecycle and moderation events.
type ProductPayload struct {
	ProductID        int64  `json:"product_id"`
	ProductName      string `json:"product_name"`
	ShopID           int64  `json:"shop_id"`
	Action           string `json:"action"`
	IsActive         bool   `json:"is_active"`
	Timestamp        string `json:"timestamp"`
	ModerationStatus string `json:"moderation_status,omitempty"`
	RejectionReason  string `json:"rejection_reason,omitempty"`
}

// OrderPayload carries order lifecycle events.
type OrderPayload struct {
	OrderID     int64   `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	ShopID      int64   `json:"shop_id"`
	UserID      int64   `json:"user_id,omitempty"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
	Action      string  `json:"action"`
	Timestamp   string  `json:"timestamp"`
}

// BalancePayload carries billing balance changes.
type BalancePayload struct {
	OldBalance      float64 `json:"old_balance"`
	NewBalance      float64 `json:"new_balance"`
	Amount          float64 `json:"amount"`
	ShopID          int64   `json:"shop_id,omitempty"`
	UserID          int64   `json:"user_id,omitempty"`
	TransactionID   int64   `json:"transaction_id,omitempty"`
	TransactionType string  `json:"transaction_type,omitempty"`
	Timestamp       string  `json:"timestamp"`
}

// ShopPayload carries shop lifecycle and moderation events.
type ShopPayload struct {
	ShopID     int64  `json:"shop_id"`
	ShopName   string `json:"shop_name"`
	OwnerName  string `json:"owner_name"`
	Action     string `json:"action"`
	IsApproved bool   `json:"is_approved"`
	IsActive   bool   `json:"is_active"`
	Reason     string `json:"reason,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// NotificationPayload carries a new in-app notification.
type NotificationPayload struct {
	NotificationID int64  `json:"notification_id"`
	UserID         int64  `json:"user_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	IsRead         bool   `json:"is_read"`
	Timestamp      string `json:"timestamp"`
}

// SettingsPayload carries a platform settings change.
// Old and new values are free-form: settings hold strings, numbers and flags.
type SettingsPayload struct {
	SettingKey string `json:"setting_key"`
	OldValue   any    `json:"old_value"`
	NewValue   any    `json:"new_value"`
	ChangedBy  int64  `json:"changed_by"`
	Timestamp  string `json:"timestamp"`
}

// WhatsAppStatusPayload carries WhatsApp integration status changes.
type WhatsAppStatusPayload struct {
	ShopID      int64  `json:"shop_id"`
	Status      string `json:"status"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// ConnectedPayload is the server's session handshake acknowledgement.
type ConnectedPayload struct {
	ClientID  string `json:"client_id"`
	Timestamp string `json:"timestamp"`
}
