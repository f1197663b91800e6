package domain

import (
	"time"

	"github.com/google/uuid"
)

// EscrowStatus represents where the held funds of a contract are.
type EscrowStatus string

const (
	EscrowStatusCreated      EscrowStatus = "CREATED"
	EscrowStatusHeldInEscrow EscrowStatus = "HELD_IN_ESCROW"
	EscrowStatusPaidOut      EscrowStatus = "PAID_OUT"
	EscrowStatusRefunded     EscrowStatus = "REFUNDED"
)

// PaymentStatus represents the gateway-side state of the brand's payment.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusCaptured PaymentStatus = "CAPTURED"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// EscrowTransaction tracks a single brand payment held by the platform
// until the influencer is paid out or the brand is refunded.
type EscrowTransaction struct {
	ID                uuid.UUID      `json:"id"`
	ContractID        uuid.UUID      `json:"contract_id"`
	BrandID           uuid.UUID      `json:"brand_id"`
	InfluencerID      uuid.UUID      `json:"influencer_id"`
	GatewayOrderID    string         `json:"gateway_order_id"`
	GatewayPaymentID  *string        `json:"gateway_payment_id,omitempty"`
	GrossAmount       int64          `json:"gross_amount"` // In paise
	PlatformFee       int64          `json:"platform_fee"`
	GatewayFee        int64          `json:"gateway_fee"`
	ProviderPayout    int64          `json:"provider_payout"`
	Currency          string         `json:"currency"`
	EscrowStatus      EscrowStatus   `json:"escrow_status"`
	PaymentStatus     PaymentStatus  `json:"payment_status"`
	PaymentCapturedAt *time.Time     `json:"payment_captured_at,omitempty"`
	RefundedAt        *time.Time     `json:"refunded_at,omitempty"`
	PaidOutAt         *time.Time     `json:"paid_out_at,omitempty"`
	WebhookEvents     []EventHistory `json:"webhook_events"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// EventHistory is one entry of the append-only event log kept on an escrow row.
type EventHistory struct {
	Event      string    `json:"event"`
	ReceivedAt time.Time `json:"received_at"`
	Error      string    `json:"error,omitempty"`
}

// IsTerminal returns true once funds have left escrow.
func (e *EscrowTransaction) IsTerminal() bool {
	return e.EscrowStatus == EscrowStatusPaidOut || e.EscrowStatus == EscrowStatusRefunded
}

// CanTransition reports whether the escrow graph allows moving from the
// current status to next. REFUNDED is reachable from any non-refunded state.
func (e *EscrowTransaction) CanTransition(next EscrowStatus) bool {
	switch next {
	case EscrowStatusHeldInEscrow:
		return e.EscrowStatus == EscrowStatusCreated
	case EscrowStatusPaidOut:
		return e.EscrowStatus == EscrowStatusHeldInEscrow
	case EscrowStatusRefunded:
		return e.EscrowStatus != EscrowStatusRefunded
	default:
		return false
	}
}

// ComputeProviderPayout returns gross minus platform and gateway fees, floored at zero.
func ComputeProviderPayout(gross, platformFee, gatewayFee int64) int64 {
	payout := gross - platformFee - gatewayFee
	if payout < 0 {
		return 0
	}
	return payout
}

// StampAfter returns now, or createdAt if the clock reads earlier than the row's
// creation. Lifecycle timestamps must never precede creation.
func StampAfter(now, createdAt time.Time) time.Time {
	if now.Before(createdAt) {
		return createdAt
	}
	return now
}

// ContractLink is the deep link used in notifications about a contract.
func ContractLink(contractID uuid.UUID) string {
	return "/contracts/" + contractID.String()
}
