// Package schema is the boundary between the wire and the typed event
// model. Every inbound frame is validated against the closed set of
// event shapes; only frames that prove valid become domain.Event values.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"shopdesk/internal/domain"
)

// envelope is the raw {event, data} frame shape.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// decoder turns validated raw data into the event type's payload struct.
type decoder func(json.RawMessage) (any, error)

// Registry validates raw frames and produces typed events. Construct
// once with New; Parse is safe for concurrent use.
type Registry struct {
	schemas  map[domain.EventType]*jsonschema.Schema
	decoders map[domain.EventType]decoder
}

// New compiles the payload schema for every known event type.
func New() (*Registry, error) {
	compiler := jsonschema.NewCompiler()
	r := &Registry{
		schemas:  make(map[domain.EventType]*jsonschema.Schema, len(payloadSchemas)),
		decoders: make(map[domain.EventType]decoder, len(payloadSchemas)),
	}
	for eventType, src := range payloadSchemas {
		s, err := compiler.Compile([]byte(src))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", eventType, err)
		}
		r.schemas[eventType] = s
		r.decoders[eventType] = decoders[eventType]
	}
	return r, nil
}

// Parse validates a raw frame and returns the typed event. It never
// panics; every failure is a *domain.RejectionError wrapping
// ErrUnknownEventType or ErrMalformedPayload.
func (r *Registry) Parse(raw []byte) (domain.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.Event{}, &domain.RejectionError{
			Reason: domain.ErrMalformedPayload,
			Detail: "frame is not a JSON envelope",
		}
	}

	eventType := domain.EventType(env.Event)

	// Liveness control frames are always valid with an empty payload
	// and are filtered out of the dispatch path by the caller.
	if eventType == domain.EventPing || eventType == domain.EventPong {
		return domain.Event{Type: eventType}, nil
	}

	s, known := r.schemas[eventType]
	if !known {
		return domain.Event{}, &domain.RejectionError{
			EventType: env.Event,
			Reason:    domain.ErrUnknownEventType,
		}
	}

	if isNullData(env.Data) {
		return domain.Event{}, &domain.RejectionError{
			EventType: env.Event,
			Reason:    domain.ErrMalformedPayload,
			Detail:    "payload is null",
		}
	}

	var payload any
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return domain.Event{}, &domain.RejectionError{
			EventType: env.Event,
			Reason:    domain.ErrMalformedPayload,
			Detail:    "payload is not valid JSON",
		}
	}

	// Required-field and type checks. Unknown extra fields pass: the
	// schemas constrain only the fields they name, so server-side
	// additions stay forward compatible.
	if result := s.Validate(payload); !result.IsValid() {
		return domain.Event{}, &domain.RejectionError{
			EventType: env.Event,
			Reason:    domain.ErrMalformedPayload,
			Detail:    fmt.Sprintf("%s", result.Error()),
		}
	}

	typed, err := r.decoders[eventType](env.Data)
	if err != nil {
		return domain.Event{}, &domain.RejectionError{
			EventType: env.Event,
			Reason:    domain.ErrMalformedPayload,
			Detail:    err.Error(),
		}
	}

	return domain.Event{Type: eventType, Payload: typed}, nil
}

// Known reports whether the event type is part of the closed set.
func (r *Registry) Known(eventType domain.EventType) bool {
	_, ok := r.schemas[eventType]
	return ok
}

func isNullData(data json.RawMessage) bool {
	return len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func decodeInto[T any](data json.RawMessage) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var decoders = map[domain.EventType]decoder{
	domain.EventProductCreated:  decodeInto[domain.ProductPayload],
	domain.EventProductUpdated:  decodeInto[domain.ProductPayload],
	domain.EventProductDeleted:  decodeInto[domain.ProductPayload],
	domain.EventProductApproved: decodeInto[domain.ProductPayload],
	domain.EventProductRejected: decodeInto[domain.ProductPayload],

	domain.EventOrderCreated:   decodeInto[domain.OrderPayload],
	domain.EventOrderUpdated:   decodeInto[domain.OrderPayload],
	domain.EventOrderCompleted: decodeInto[domain.OrderPayload],
	domain.EventOrderCancelled: decodeInto[domain.OrderPayload],

	domain.EventBalanceUpdated: decodeInto[domain.BalancePayload],

	domain.EventShopCreated:     decodeInto[domain.ShopPayload],
	domain.EventShopUpdated:     decodeInto[domain.ShopPayload],
	domain.EventShopApproved:    decodeInto[domain.ShopPayload],
	domain.EventShopRejected:    decodeInto[domain.ShopPayload],
	domain.EventShopActivated:   decodeInto[domain.ShopPayload],
	domain.EventShopDeactivated: decodeInto[domain.ShopPayload],

	domain.EventNotificationNew: decodeInto[domain.NotificationPayload],
	domain.EventSettingsUpdated: decodeInto[domain.SettingsPayload],
	domain.EventWhatsAppStatus:  decodeInto[domain.WhatsAppStatusPayload],
	domain.EventConnected:       decodeInto[domain.ConnectedPayload],
}
