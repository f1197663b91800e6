package ports

import (
	"context"
	"time"

	"campaign-escrow/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

// EscrowUpdate is a partial update of one escrow row. Nil fields are left untouched.
// When ExpectStatus is non-empty the update only applies if the row's current
// escrow_status is one of them; callers treat "not applied" as a redelivery no-op.
type EscrowUpdate struct {
	EscrowStatus      *domain.EscrowStatus
	PaymentStatus     *domain.PaymentStatus
	GatewayPaymentID  *string
	PaymentCapturedAt *time.Time
	RefundedAt        *time.Time
	PaidOutAt         *time.Time
	AppendEvent       *domain.EventHistory
	ExpectStatus      []domain.EscrowStatus
}

// EscrowRepository defines persistence operations for escrow transactions.
// Methods accepting pgx.Tx run inside the reconciler's transaction.
type EscrowRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.EscrowTransaction, error)
	GetByOrderID(ctx context.Context, gatewayOrderID string) (*domain.EscrowTransaction, error)
	GetByPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.EscrowTransaction, error)
	Update(ctx context.Context, tx pgx.Tx, id uuid.UUID, upd EscrowUpdate) (bool, error)
}

// PayoutRepository defines persistence operations for influencer payouts.
type PayoutRepository interface {
	GetByGatewayPayoutID(ctx context.Context, gatewayPayoutID string) (*domain.Payout, error)
	// Settle moves a PENDING payout to status. Returns false if it was no longer PENDING.
	Settle(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PayoutStatus, at time.Time, failureReason *string) (bool, error)
}

// WebhookLogRepository defines persistence for the inbound webhook audit log.
type WebhookLogRepository interface {
	Create(ctx context.Context, log *domain.WebhookLog) error
	GetByEventID(ctx context.Context, source, eventID string) (*domain.WebhookLog, error)
	MarkProcessed(ctx context.Context, source, eventID string, at time.Time) error
	MarkProcessedByID(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ListUnprocessed(ctx context.Context, createdBefore time.Time, limit int) ([]domain.WebhookLog, error)
}

// NotificationRepository persists user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, tx pgx.Tx, n *domain.Notification) error
}

// RevenueRepository persists platform revenue ledger entries.
type RevenueRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.RevenueEntry) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
