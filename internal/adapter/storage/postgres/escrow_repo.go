package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"campaign-escrow/internal/core/domain"
	"campaign-escrow/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const escrowColumns = `id, contract_id, brand_id, influencer_id, gateway_order_id, gateway_payment_id,
		gross_amount, platform_fee, gateway_fee, provider_payout, currency,
		escrow_status, payment_status, payment_captured_at, refunded_at, paid_out_at,
		webhook_events, created_at, updated_at`

// EscrowRepo implements ports.EscrowRepository.
type EscrowRepo struct {
	pool Pool
}

// NewEscrowRepo creates a new EscrowRepo.
func NewEscrowRepo(pool Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

// GetByID fetches an escrow transaction by UUID.
func (r *EscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.EscrowTransaction, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrow_transactions WHERE id = $1`
	return r.scanEscrow(r.pool.QueryRow(ctx, query, id))
}

// GetByOrderID fetches an escrow transaction by the gateway order it was created for.
func (r *EscrowRepo) GetByOrderID(ctx context.Context, gatewayOrderID string) (*domain.EscrowTransaction, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrow_transactions WHERE gateway_order_id = $1`
	return r.scanEscrow(r.pool.QueryRow(ctx, query, gatewayOrderID))
}

// GetByPaymentID fetches an escrow transaction by its captured gateway payment.
func (r *EscrowRepo) GetByPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.EscrowTransaction, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrow_transactions WHERE gateway_payment_id = $1`
	return r.scanEscrow(r.pool.QueryRow(ctx, query, gatewayPaymentID))
}

// Update applies a partial update within a database transaction and reports
// whether the row matched. Lifecycle timestamps are only written while NULL.
func (r *EscrowRepo) Update(ctx context.Context, tx pgx.Tx, id uuid.UUID, upd ports.EscrowUpdate) (bool, error) {
	var sets []string
	var args []any
	argIdx := 1

	set := func(expr string, v any) {
		sets = append(sets, fmt.Sprintf(expr, argIdx))
		args = append(args, v)
		argIdx++
	}

	if upd.EscrowStatus != nil {
		set("escrow_status = $%d", *upd.EscrowStatus)
	}
	if upd.PaymentStatus != nil {
		set("payment_status = $%d", *upd.PaymentStatus)
	}
	if upd.GatewayPaymentID != nil {
		set("gateway_payment_id = $%d", *upd.GatewayPaymentID)
	}
	if upd.PaymentCapturedAt != nil {
		set("payment_captured_at = COALESCE(payment_captured_at, $%d)", *upd.PaymentCapturedAt)
	}
	if upd.RefundedAt != nil {
		set("refunded_at = COALESCE(refunded_at, $%d)", *upd.RefundedAt)
	}
	if upd.PaidOutAt != nil {
		set("paid_out_at = COALESCE(paid_out_at, $%d)", *upd.PaidOutAt)
	}
	if upd.AppendEvent != nil {
		entry, err := json.Marshal([]domain.EventHistory{*upd.AppendEvent})
		if err != nil {
			return false, fmt.Errorf("encode escrow event history: %w", err)
		}
		set("webhook_events = COALESCE(webhook_events, '[]'::jsonb) || $%d::jsonb", string(entry))
	}
	if len(sets) == 0 {
		return false, errors.New("update escrow: no fields to update")
	}
	sets = append(sets, "updated_at = NOW()")

	where := fmt.Sprintf("id = $%d", argIdx)
	args = append(args, id)
	argIdx++

	if len(upd.ExpectStatus) > 0 {
		expected := make([]string, len(upd.ExpectStatus))
		for i, s := range upd.ExpectStatus {
			expected[i] = string(s)
		}
		where += fmt.Sprintf(" AND escrow_status = ANY($%d)", argIdx)
		args = append(args, expected)
	}

	query := fmt.Sprintf("UPDATE escrow_transactions SET %s WHERE %s", strings.Join(sets, ", "), where)

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update escrow %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// scanEscrow is a helper to scan a single row into an EscrowTransaction.
func (r *EscrowRepo) scanEscrow(row pgx.Row) (*domain.EscrowTransaction, error) {
	e := &domain.EscrowTransaction{}
	var events []byte
	err := row.Scan(
		&e.ID, &e.ContractID, &e.BrandID, &e.InfluencerID, &e.GatewayOrderID, &e.GatewayPaymentID,
		&e.GrossAmount, &e.PlatformFee, &e.GatewayFee, &e.ProviderPayout, &e.Currency,
		&e.EscrowStatus, &e.PaymentStatus, &e.PaymentCapturedAt, &e.RefundedAt, &e.PaidOutAt,
		&events, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan escrow: %w", err)
	}
	if len(events) > 0 {
		if err := json.Unmarshal(events, &e.WebhookEvents); err != nil {
			return nil, fmt.Errorf("decode escrow %s event history: %w", e.ID, err)
		}
	}
	return e, nil
}
