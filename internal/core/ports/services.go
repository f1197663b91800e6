package ports

import (
	"context"
	"time"

	"campaign-escrow/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

// SignatureVerifier checks that a webhook body was signed by the gateway.
type SignatureVerifier interface {
	// Enabled is false in unverified mode (no secret configured).
	Enabled() bool
	Sign(body []byte) string
	Verify(body []byte, signature string) error
}

// EventDedupCache is the Redis fast path for skipping redelivered gateway events.
type EventDedupCache interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error
}

// EventPublisher emits escrow lifecycle events to other services.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.EscrowEvent) error
	Close() error
}

// WebhookLogService is the append-only audit log of inbound gateway events.
type WebhookLogService interface {
	Record(ctx context.Context, event domain.GatewayEvent, raw []byte) (*domain.WebhookLog, error)
	MarkProcessed(ctx context.Context, log *domain.WebhookLog) error
	MarkFailed(ctx context.Context, log *domain.WebhookLog, cause error) error
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	ListUnprocessed(ctx context.Context, olderThan time.Duration, limit int) ([]domain.WebhookLog, error)
}

// NotificationEmitter writes user-facing notifications inside a transition.
type NotificationEmitter interface {
	PaymentSecured(ctx context.Context, tx pgx.Tx, escrow *domain.EscrowTransaction) error
	PaymentFailed(ctx context.Context, tx pgx.Tx, escrow *domain.EscrowTransaction, reason string) error
}

// RevenueLedger records the platform fee captured on a payment.
type RevenueLedger interface {
	RecordCapture(ctx context.Context, tx pgx.Tx, escrow *domain.EscrowTransaction, at time.Time) (*domain.RevenueEntry, error)
}

// ReconcileOutcome describes what applying a gateway event did.
type ReconcileOutcome string

const (
	OutcomeApplied    ReconcileOutcome = "applied"
	OutcomeNoop       ReconcileOutcome = "noop"        // guard rejected a redelivery
	OutcomeLookupMiss ReconcileOutcome = "lookup_miss" // no matching record
	OutcomeIgnored    ReconcileOutcome = "ignored"     // event type not reconciled
	OutcomeDuplicate  ReconcileOutcome = "duplicate"   // event id already processed
)

// ReconcileResult is returned by the reconciler for logging and tests.
type ReconcileResult struct {
	Outcome  ReconcileOutcome
	EscrowID *uuid.UUID
}

// EscrowReconciler applies one gateway event to the escrow state machine.
type EscrowReconciler interface {
	Apply(ctx context.Context, event domain.GatewayEvent) (*ReconcileResult, error)
}

// WebhookProcessor runs a verified webhook through dedup, audit log and reconciliation.
type WebhookProcessor interface {
	Process(ctx context.Context, raw []byte, headerEventID string) (*ReconcileResult, error)
	Replay(ctx context.Context, log *domain.WebhookLog) (*ReconcileResult, error)
}
