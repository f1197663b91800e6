package domain

import (
	"time"

	"github.com/google/uuid"
)

// WebhookSourceRazorpay is the only gateway this service accepts events from.
const WebhookSourceRazorpay = "razorpay"

// WebhookLog records one inbound gateway event for audit and redelivery checks.
type WebhookLog struct {
	ID          uuid.UUID  `json:"id"`
	Source      string     `json:"source"`
	EventType   string     `json:"event_type"`
	EventID     *string    `json:"event_id,omitempty"` // Gateway dedup key
	Payload     []byte     `json:"payload"`            // Raw body as received
	Processed   bool       `json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Notification is a user-facing message written as a side effect of a transition.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Link      string           `json:"link"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationType tags a notification for the client.
type NotificationType string

const (
	NotificationPaymentReceived NotificationType = "payment_received"
	NotificationPaymentFailed   NotificationType = "payment_failed"
)

// RevenueEntry is the platform's fee captured on a successful payment.
type RevenueEntry struct {
	ID                  uuid.UUID `json:"id"`
	EscrowTransactionID uuid.UUID `json:"escrow_transaction_id"`
	ContractID          uuid.UUID `json:"contract_id"`
	GrossAmount         int64     `json:"gross_amount"`
	PlatformFee         int64     `json:"platform_fee"`
	GatewayFee          int64     `json:"gateway_fee"`
	NetRevenue          int64     `json:"net_revenue"`
	Currency            string    `json:"currency"`
	RecordedAt          time.Time `json:"recorded_at"`
}
