package schema

import "shopdesk/internal/domain"

// Payload schemas, one per event type. Only named fields are
// constrained; additional properties are deliberately allowed so new
// server-side fields never break older clients.

const productSchema = `{
	"type": "object",
	"required": ["product_id", "product_name", "shop_id", "action", "is_active", "timestamp"],
	"properties": {
		"product_id":   {"type": "integer"},
		"product_name": {"type": "string"},
		"shop_id":      {"type": "integer"},
		"action":       {"type": "string"},
		"is_active":    {"type": "boolean"},
		"timestamp":    {"type": "string"}
	}
}`

const productModerationSchema = `{
	"type": "object",
	"required": ["product_id", "product_name", "shop_id", "action", "is_active", "timestamp", "moderation_status"],
	"properties": {
		"product_id":        {"type": "integer"},
		"product_name":      {"type": "string"},
		"shop_id":           {"type": "integer"},
		"action":            {"type": "string"},
		"is_active":         {"type": "boolean"},
		"timestamp":         {"type": "string"},
		"moderation_status": {"type": "string"},
		"rejection_reason":  {"type": "string"}
	}
}`

const orderSchema = `{
	"type": "object",
	"required": ["order_id", "order_number", "shop_id", "total_amount", "status", "action", "timestamp"],
	"properties": {
		"order_id":     {"type": "integer"},
		"order_number": {"type": "string"},
		"shop_id":      {"type": "integer"},
		"user_id":      {"type": "integer"},
		"total_amount": {"type": "number"},
		"status":       {"type": "string"},
		"action":       {"type": "string"},
		"timestamp":    {"type": "string"}
	}
}`

const balanceSchema = `{
	"type": "object",
	"required": ["old_balance", "new_balance", "amount", "timestamp"],
	"properties": {
		"old_balance":      {"type": "number"},
		"new_balance":      {"type": "number"},
		"amount":           {"type": "number"},
		"shop_id":          {"type": "integer"},
		"user_id":          {"type": "integer"},
		"transaction_id":   {"type": "integer"},
		"transaction_type": {"type": "string"},
		"timestamp":        {"type": "string"}
	}
}`

const shopSchema = `{
	"type": "object",
	"required": ["shop_id", "shop_name", "owner_name", "action", "is_approved", "is_active", "timestamp"],
	"properties": {
		"shop_id":     {"type": "integer"},
		"shop_name":   {"type": "string"},
		"owner_name":  {"type": "string"},
		"action":      {"type": "string"},
		"is_approved": {"type": "boolean"},
		"is_active":   {"type": "boolean"},
		"timestamp":   {"type": "string"}
	}
}`

// Rejection and deactivation carry an operator-facing reason.
const shopReasonSchema = `{
	"type": "object",
	"required": ["shop_id", "shop_name", "owner_name", "action", "is_approved", "is_active", "timestamp", "reason"],
	"properties": {
		"shop_id":     {"type": "integer"},
		"shop_name":   {"type": "string"},
		"owner_name":  {"type": "string"},
		"action":      {"type": "string"},
		"is_approved": {"type": "boolean"},
		"is_active":   {"type": "boolean"},
		"timestamp":   {"type": "string"},
		"reason":      {"type": "string"}
	}
}`

const notificationSchema = `{
	"type": "object",
	"required": ["notification_id", "user_id", "type", "title", "message", "is_read", "timestamp"],
	"properties": {
		"notification_id": {"type": "integer"},
		"user_id":         {"type": "integer"},
		"type":            {"type": "string"},
		"title":           {"type": "string"},
		"message":         {"type": "string"},
		"is_read":         {"type": "boolean"},
		"timestamp":       {"type": "string"}
	}
}`

// old_value/new_value are intentionally untyped: settings hold strings,
// numbers and flags.
const settingsSchema = `{
	"type": "object",
	"required": ["setting_key", "old_value", "new_value", "changed_by", "timestamp"],
	"properties": {
		"setting_key": {"type": "string"},
		"changed_by":  {"type": "integer"},
		"timestamp":   {"type": "string"}
	}
}`

const whatsappSchema = `{
	"type": "object",
	"required": ["shop_id", "status", "timestamp"],
	"properties": {
		"shop_id":      {"type": "integer"},
		"status":       {"type": "string"},
		"phone_number": {"type": "string"},
		"timestamp":    {"type": "string"}
	}
}`

const connectedSchema = `{
	"type": "object",
	"required": ["client_id", "timestamp"],
	"properties": {
		"client_id": {"type": "string"},
		"timestamp": {"type": "string"}
	}
}`

var payloadSchemas = map[domain.EventType]string{
	domain.EventProductCreated:  productSchema,
	domain.EventProductUpdated:  productSchema,
	domain.EventProductDeleted:  productSchema,
	domain.EventProductApproved: productModerationSchema,
	domain.EventProductRejected: productModerationSchema,

	domain.EventOrderCreated:   orderSchema,
	domain.EventOrderUpdated:   orderSchema,
	domain.EventOrderCompleted: orderSchema,
	domain.EventOrderCancelled: orderSchema,

	domain.EventBalanceUpdated: balanceSchema,

	domain.EventShopCreated:     shopSchema,
	domain.EventShopUpdated:     shopSchema,
	domain.EventShopApproved:    shopSchema,
	domain.EventShopRejected:    shopReasonSchema,
	domain.EventShopActivated:   shopSchema,
	domain.EventShopDeactivated: shopReasonSchema,

	domain.EventNotificationNew: notificationSchema,
	domain.EventSettingsUpdated: settingsSchema,
	domain.EventWhatsAppStatus:  whatsappSchema,
	domain.EventConnected:       connectedSchema,
}
