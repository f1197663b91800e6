package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscrowTransaction_CanTransition(t *testing.T) {
	tests := []struct {
		from EscrowStatus
		to   EscrowStatus
		want bool
	}{
		{EscrowStatusCreated, EscrowStatusHeldInEscrow, true},
		{EscrowStatusHeldInEscrow, EscrowStatusHeldInEscrow, false},
		{EscrowStatusPaidOut, EscrowStatusHeldInEscrow, false},
		{EscrowStatusHeldInEscrow, EscrowStatusPaidOut, true},
		{EscrowStatusCreated, EscrowStatusPaidOut, false},
		{EscrowStatusPaidOut, EscrowStatusPaidOut, false},
		{EscrowStatusCreated, EscrowStatusRefunded, true},
		{EscrowStatusHeldInEscrow, EscrowStatusRefunded, true},
		{EscrowStatusPaidOut, EscrowStatusRefunded, true},
		{EscrowStatusRefunded, EscrowStatusRefunded, false},
		{EscrowStatusHeldInEscrow, EscrowStatusCreated, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			e := &EscrowTransaction{EscrowStatus: tt.from}
			assert.Equal(t, tt.want, e.CanTransition(tt.to))
		})
	}
}

func TestEscrowTransaction_IsTerminal(t *testing.T) {
	tests := []struct {
		status EscrowStatus
		want   bool
	}{
		{EscrowStatusCreated, false},
		{EscrowStatusHeldInEscrow, false},
		{EscrowStatusPaidOut, true},
		{EscrowStatusRefunded, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			e := &EscrowTransaction{EscrowStatus: tt.status}
			assert.Equal(t, tt.want, e.IsTerminal())
		})
	}
}

func TestComputeProviderPayout(t *testing.T) {
	assert.Equal(t, int64(880), ComputeProviderPayout(1000, 100, 20))
	assert.Equal(t, int64(0), ComputeProviderPayout(100, 90, 20))
	assert.Equal(t, int64(1000), ComputeProviderPayout(1000, 0, 0))
}

func TestStampAfter(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, created.Add(time.Minute), StampAfter(created.Add(time.Minute), created))
	assert.Equal(t, created, StampAfter(created.Add(-time.Minute), created))
	assert.Equal(t, created, StampAfter(created, created))
}

func TestContractLink(t *testing.T) {
	id := uuid.MustParse("8b7df2a4-5f0e-4a59-9f4a-3c2d7d1b6e10")
	assert.Equal(t, "/contracts/8b7df2a4-5f0e-4a59-9f4a-3c2d7d1b6e10", ContractLink(id))
}

func TestPayoutStatusFromGateway(t *testing.T) {
	assert.Equal(t, PayoutStatusCompleted, PayoutStatusFromGateway("processed"))
	for _, s := range []string{"reversed", "failed", "cancelled", "", "Processed"} {
		assert.Equal(t, PayoutStatusFailed, PayoutStatusFromGateway(s), s)
	}
}

func TestNewEscrowEvent(t *testing.T) {
	e := &EscrowTransaction{ID: uuid.New(), ContractID: uuid.New()}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	evt := NewEscrowEvent(EscrowEventHeld, e, EscrowStatusHeldInEscrow, "evt_1", at)

	assert.NotEqual(t, uuid.Nil, evt.EventID)
	assert.Equal(t, EscrowEventHeld, evt.Type)
	assert.Equal(t, e.ID, evt.EscrowTransactionID)
	assert.Equal(t, e.ContractID, evt.ContractID)
	assert.Equal(t, EscrowStatusHeldInEscrow, evt.EscrowStatus)
	assert.Equal(t, "evt_1", evt.GatewayEventID)
	assert.Equal(t, at, evt.OccurredAt)

	other := NewEscrowEvent(EscrowEventHeld, e, EscrowStatusHeldInEscrow, "evt_1", at)
	assert.NotEqual(t, evt.EventID, other.EventID)
}

func TestDecodeGatewayEvent_KnownEvents(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want GatewayEvent
	}{
		{
			name: "payment captured",
			raw:  `{"event":"payment.captured","id":"evt_1","created_at":1772366400,"payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":100000,"currency":"INR"}}}}`,
			want: PaymentCaptured{
				EventEnvelope: EventEnvelope{Name: EventPaymentCaptured, ID: "evt_1", CreatedAt: time.Unix(1772366400, 0).UTC()},
				PaymentID:     "pay_1",
				OrderID:       "order_1",
				Amount:        100000,
				Currency:      "INR",
			},
		},
		{
			name: "payment failed",
			raw:  `{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2","order_id":"order_2","error_code":"BAD_REQUEST_ERROR","error_description":"card declined"}}}}`,
			want: PaymentFailed{
				EventEnvelope:    EventEnvelope{Name: EventPaymentFailed},
				PaymentID:        "pay_2",
				OrderID:          "order_2",
				ErrorCode:        "BAD_REQUEST_ERROR",
				ErrorDescription: "card declined",
			},
		},
		{
			name: "refund created",
			raw:  `{"event":"refund.created","payload":{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1","amount":500}}}}`,
			want: RefundCreated{
				EventEnvelope: EventEnvelope{Name: EventRefundCreated},
				RefundID:      "rfnd_1",
				PaymentID:     "pay_1",
				Amount:        500,
			},
		},
		{
			name: "payout processed",
			raw:  `{"event":"payout.processed","payload":{"payout":{"entity":{"id":"pout_1","status":"reversed","failure_reason":"beneficiary bank down"}}}}`,
			want: PayoutProcessed{
				EventEnvelope: EventEnvelope{Name: EventPayoutProcessed},
				PayoutID:      "pout_1",
				Status:        "reversed",
				FailureReason: "beneficiary bank down",
			},
		},
		{
			name: "unknown event",
			raw:  `{"event":"order.paid","payload":{"order":{"entity":{"id":"order_1"}}}}`,
			want: UnknownEvent{EventEnvelope: EventEnvelope{Name: "order.paid"}},
		},
		{
			name: "unknown event with array payload",
			raw:  `{"event":"subscription.charged","id":"evt_9","payload":[]}`,
			want: UnknownEvent{EventEnvelope: EventEnvelope{Name: "subscription.charged", ID: "evt_9"}},
		},
		{
			name: "unknown event with string payload",
			raw:  `{"event":"subscription.charged","id":"evt_9","payload":"opaque"}`,
			want: UnknownEvent{EventEnvelope: EventEnvelope{Name: "subscription.charged", ID: "evt_9"}},
		},
		{
			name: "unknown event with RFC 3339 created_at",
			raw:  `{"event":"subscription.charged","id":"evt_9","created_at":"2026-10-15T00:00:00Z"}`,
			want: UnknownEvent{EventEnvelope: EventEnvelope{Name: "subscription.charged", ID: "evt_9"}},
		},
		{
			name: "unknown event with float created_at",
			raw:  `{"event":"subscription.charged","id":"evt_9","created_at":1.5e9}`,
			want: UnknownEvent{EventEnvelope: EventEnvelope{Name: "subscription.charged", ID: "evt_9"}},
		},
		{
			name: "captured with non-integer created_at",
			raw:  `{"event":"payment.captured","id":"evt_1","created_at":"yesterday","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":100000,"currency":"INR"}}}}`,
			want: PaymentCaptured{
				EventEnvelope: EventEnvelope{Name: EventPaymentCaptured, ID: "evt_1"},
				PaymentID:     "pay_1",
				OrderID:       "order_1",
				Amount:        100000,
				Currency:      "INR",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeGatewayEvent([]byte(tt.raw), "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeGatewayEvent_EventIDPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		header string
		want   string
	}{
		{"header wins", `{"event":"order.paid","event_id":"evt_body","id":"evt_id"}`, "evt_header", "evt_header"},
		{"event_id field", `{"event":"order.paid","event_id":"evt_body","id":"evt_id"}`, "", "evt_body"},
		{"id field", `{"event":"order.paid","id":"evt_id"}`, "", "evt_id"},
		{"blank header ignored", `{"event":"order.paid","id":"evt_id"}`, "   ", "evt_id"},
		{"none", `{"event":"order.paid"}`, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeGatewayEvent([]byte(tt.raw), tt.header)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.GatewayEventID())
		})
	}
}

func TestDecodeGatewayEvent_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `event=payment.captured`},
		{"empty body", ``},
		{"missing event name", `{"payload":{}}`},
		{"blank event name", `{"event":"  "}`},
		{"captured without payment", `{"event":"payment.captured","payload":{}}`},
		{"captured without payload", `{"event":"payment.captured"}`},
		{"captured with array payload", `{"event":"payment.captured","payload":[]}`},
		{"captured without order id", `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1"}}}}`},
		{"captured without payment id", `{"event":"payment.captured","payload":{"payment":{"entity":{"order_id":"order_1"}}}}`},
		{"captured with wrong amount type", `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":"lots"}}}}`},
		{"failed without order id", `{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_1"}}}}`},
		{"refund without payment id", `{"event":"refund.created","payload":{"refund":{"entity":{"id":"rfnd_1"}}}}`},
		{"payout without id", `{"event":"payout.processed","payload":{"payout":{"entity":{"status":"processed"}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeGatewayEvent([]byte(tt.raw), "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedEvent))
		})
	}
}
