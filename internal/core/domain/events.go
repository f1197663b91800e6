package domain

import (
	"time"

	"github.com/google/uuid"
)

// Escrow lifecycle events published after a transition commits.
const (
	EscrowEventHeld          = "escrow.held"
	EscrowEventPaymentFailed = "escrow.payment_failed"
	EscrowEventRefunded      = "escrow.refunded"
	EscrowEventPaidOut       = "escrow.paid_out"
	EscrowEventPayoutFailed  = "payout.failed"
)

// EscrowEvent is the message other services consume to follow escrow state.
type EscrowEvent struct {
	EventID             uuid.UUID    `json:"event_id"`
	Type                string       `json:"type"`
	EscrowTransactionID uuid.UUID    `json:"escrow_transaction_id"`
	ContractID          uuid.UUID    `json:"contract_id"`
	EscrowStatus        EscrowStatus `json:"escrow_status"`
	GatewayEventID      string       `json:"gateway_event_id,omitempty"`
	OccurredAt          time.Time    `json:"occurred_at"`
}

// NewEscrowEvent builds an event for the given escrow row.
func NewEscrowEvent(eventType string, escrow *EscrowTransaction, status EscrowStatus, gatewayEventID string, at time.Time) EscrowEvent {
	return EscrowEvent{
		EventID:             uuid.New(),
		Type:                eventType,
		EscrowTransactionID: escrow.ID,
		ContractID:          escrow.ContractID,
		EscrowStatus:        status,
		GatewayEventID:      gatewayEventID,
		OccurredAt:          at,
	}
}
