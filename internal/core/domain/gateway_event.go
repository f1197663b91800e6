package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Gateway event names this service acts on.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundCreated   = "refund.created"
	EventPayoutProcessed = "payout.processed"
)

// GatewayEvent is a decoded gateway webhook. The concrete type is one of
// PaymentCaptured, PaymentFailed, RefundCreated, PayoutProcessed or UnknownEvent.
type GatewayEvent interface {
	EventName() string
	GatewayEventID() string
}

// EventEnvelope holds the fields shared by every gateway event.
type EventEnvelope struct {
	Name      string
	ID        string // Empty when the gateway sent no event id
	CreatedAt time.Time
}

func (e EventEnvelope) EventName() string      { return e.Name }
func (e EventEnvelope) GatewayEventID() string { return e.ID }

type PaymentCaptured struct {
	EventEnvelope
	PaymentID string
	OrderID   string
	Amount    int64
	Currency  string
}

type PaymentFailed struct {
	EventEnvelope
	PaymentID        string
	OrderID          string
	ErrorCode        string
	ErrorDescription string
}

type RefundCreated struct {
	EventEnvelope
	RefundID  string
	PaymentID string
	Amount    int64
}

type PayoutProcessed struct {
	EventEnvelope
	PayoutID      string
	Status        string
	FailureReason string
}

// UnknownEvent is any event name this service does not reconcile.
type UnknownEvent struct {
	EventEnvelope
}

type rawEnvelope struct {
	Event     string          `json:"event"`
	EventID   string          `json:"event_id"`
	ID        string          `json:"id"`
	CreatedAt json.RawMessage `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

type rawEntity[T any] struct {
	Entity T `json:"entity"`
}

type paymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

type refundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

type payoutEntity struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason"`
}

// DecodeGatewayEvent parses a raw webhook body into a typed event.
// headerEventID, when non-empty, overrides any id found in the body.
// Only the event name and ids are required of every event; payload shape is
// checked for the event names this service reconciles.
func DecodeGatewayEvent(raw []byte, headerEventID string) (GatewayEvent, error) {
	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if strings.TrimSpace(env.Event) == "" {
		return nil, fmt.Errorf("%w: missing event name", ErrMalformedEvent)
	}

	base := EventEnvelope{Name: env.Event, ID: firstNonEmpty(headerEventID, env.EventID, env.ID)}
	base.CreatedAt = unixSeconds(env.CreatedAt)

	switch env.Event {
	case EventPaymentCaptured:
		p, err := decodeEntity[paymentEntity](env.Payload, "payment")
		if err != nil {
			return nil, err
		}
		if p.OrderID == "" || p.ID == "" {
			return nil, fmt.Errorf("%w: payment entity requires id and order_id", ErrMalformedEvent)
		}
		return PaymentCaptured{EventEnvelope: base, PaymentID: p.ID, OrderID: p.OrderID, Amount: p.Amount, Currency: p.Currency}, nil

	case EventPaymentFailed:
		p, err := decodeEntity[paymentEntity](env.Payload, "payment")
		if err != nil {
			return nil, err
		}
		if p.OrderID == "" {
			return nil, fmt.Errorf("%w: payment entity requires order_id", ErrMalformedEvent)
		}
		return PaymentFailed{
			EventEnvelope:    base,
			PaymentID:        p.ID,
			OrderID:          p.OrderID,
			ErrorCode:        p.ErrorCode,
			ErrorDescription: p.ErrorDescription,
		}, nil

	case EventRefundCreated:
		r, err := decodeEntity[refundEntity](env.Payload, "refund")
		if err != nil {
			return nil, err
		}
		if r.PaymentID == "" {
			return nil, fmt.Errorf("%w: refund entity requires payment_id", ErrMalformedEvent)
		}
		return RefundCreated{EventEnvelope: base, RefundID: r.ID, PaymentID: r.PaymentID, Amount: r.Amount}, nil

	case EventPayoutProcessed:
		p, err := decodeEntity[payoutEntity](env.Payload, "payout")
		if err != nil {
			return nil, err
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%w: payout entity requires id", ErrMalformedEvent)
		}
		return PayoutProcessed{EventEnvelope: base, PayoutID: p.ID, Status: p.Status, FailureReason: p.FailureReason}, nil

	default:
		return UnknownEvent{EventEnvelope: base}, nil
	}
}

func decodeEntity[T any](payload json.RawMessage, name string) (T, error) {
	var wrapped rawEntity[T]
	var entities map[string]json.RawMessage
	if err := json.Unmarshal(payload, &entities); err != nil {
		return wrapped.Entity, fmt.Errorf("%w: payload: %v", ErrMalformedEvent, err)
	}
	raw, ok := entities[name]
	if !ok {
		return wrapped.Entity, fmt.Errorf("%w: missing payload.%s.entity", ErrMalformedEvent, name)
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return wrapped.Entity, fmt.Errorf("%w: payload.%s: %v", ErrMalformedEvent, name, err)
	}
	return wrapped.Entity, nil
}

// unixSeconds returns the UTC time for an integer unix timestamp. Anything
// else, including a missing value, yields the zero time.
func unixSeconds(raw json.RawMessage) time.Time {
	var secs int64
	if len(raw) == 0 || json.Unmarshal(raw, &secs) != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
