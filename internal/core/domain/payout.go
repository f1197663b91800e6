package domain

import (
	"time"

	"github.com/google/uuid"
)

// PayoutStatus represents the state of an influencer withdrawal at the gateway.
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "PENDING"
	PayoutStatusCompleted PayoutStatus = "COMPLETED"
	PayoutStatusFailed    PayoutStatus = "FAILED"
)

// GatewayPayoutProcessed is the gateway status string that means the transfer succeeded.
const GatewayPayoutProcessed = "processed"

// Payout is a transfer of held funds to an influencer.
type Payout struct {
	ID                  uuid.UUID    `json:"id"`
	GatewayPayoutID     string       `json:"gateway_payout_id"`
	EscrowTransactionID uuid.UUID    `json:"escrow_transaction_id"`
	Amount              int64        `json:"amount"`
	Status              PayoutStatus `json:"status"`
	CompletedAt         *time.Time   `json:"completed_at,omitempty"`
	FailedAt            *time.Time   `json:"failed_at,omitempty"`
	FailureReason       *string      `json:"failure_reason,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// PayoutStatusFromGateway maps the gateway's payout status onto ours.
func PayoutStatusFromGateway(gatewayStatus string) PayoutStatus {
	if gatewayStatus == GatewayPayoutProcessed {
		return PayoutStatusCompleted
	}
	return PayoutStatusFailed
}
