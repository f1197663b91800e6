package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campaign-escrow/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PayoutRepo implements ports.PayoutRepository.
type PayoutRepo struct {
	pool Pool
}

// NewPayoutRepo creates a new PayoutRepo.
func NewPayoutRepo(pool Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

// GetByGatewayPayoutID fetches a payout by the gateway's payout id.
func (r *PayoutRepo) GetByGatewayPayoutID(ctx context.Context, gatewayPayoutID string) (*domain.Payout, error) {
	query := `SELECT id, gateway_payout_id, escrow_transaction_id, amount, status,
		completed_at, failed_at, failure_reason, created_at, updated_at
		FROM payouts WHERE gateway_payout_id = $1`

	p := &domain.Payout{}
	err := r.pool.QueryRow(ctx, query, gatewayPayoutID).Scan(
		&p.ID, &p.GatewayPayoutID, &p.EscrowTransactionID, &p.Amount, &p.Status,
		&p.CompletedAt, &p.FailedAt, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payout: %w", err)
	}
	return p, nil
}

// Settle moves a PENDING payout to status within a database transaction,
// stamping completed_at or failed_at to match.
func (r *PayoutRepo) Settle(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PayoutStatus, at time.Time, failureReason *string) (bool, error) {
	var completedAt, failedAt *time.Time
	if status == domain.PayoutStatusCompleted {
		completedAt = &at
	} else {
		failedAt = &at
	}

	query := `UPDATE payouts SET status = $1, completed_at = $2, failed_at = $3, failure_reason = $4, updated_at = $5
		WHERE id = $6 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, status, completedAt, failedAt, failureReason, at, id)
	if err != nil {
		return false, fmt.Errorf("settle payout %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
