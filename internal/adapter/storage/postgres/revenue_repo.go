package postgres

import (
	"context"
	"fmt"

	"campaign-escrow/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// RevenueRepo implements ports.RevenueRepository over the platform_revenue table.
type RevenueRepo struct{}

func NewRevenueRepo() *RevenueRepo {
	return &RevenueRepo{}
}

// Create inserts a revenue entry within a database transaction.
func (r *RevenueRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.RevenueEntry) error {
	query := `INSERT INTO platform_revenue (id, escrow_transaction_id, contract_id, gross_amount,
		platform_fee, gateway_fee, net_revenue, currency, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.EscrowTransactionID, e.ContractID, e.GrossAmount,
		e.PlatformFee, e.GatewayFee, e.NetRevenue, e.Currency, e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert revenue entry: %w", err)
	}
	return nil
}
