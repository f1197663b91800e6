package service

import (
	"context"
	"fmt"
	"time"

	"campaign-escrow/internal/core/domain"
	"campaign-escrow/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RevenueLedgerImpl implements ports.RevenueLedger.
type RevenueLedgerImpl struct {
	repo            ports.RevenueRepository
	feePercent      decimal.Decimal
	defaultCurrency string
	log             zerolog.Logger
}

// NewRevenueLedger creates a ledger. feePercent is used only for escrow rows
// that carry no platform fee of their own.
func NewRevenueLedger(repo ports.RevenueRepository, feePercent float64, defaultCurrency string, log zerolog.Logger) *RevenueLedgerImpl {
	return &RevenueLedgerImpl{
		repo:            repo,
		feePercent:      decimal.NewFromFloat(feePercent),
		defaultCurrency: defaultCurrency,
		log:             log,
	}
}

// RecordCapture writes the platform's revenue for a captured payment inside tx.
func (l *RevenueLedgerImpl) RecordCapture(ctx context.Context, tx pgx.Tx, escrow *domain.EscrowTransaction, at time.Time) (*domain.RevenueEntry, error) {
	fee := l.PlatformFee(escrow)

	currency := escrow.Currency
	if currency == "" {
		currency = l.defaultCurrency
	}

	entry := &domain.RevenueEntry{
		ID:                  uuid.New(),
		EscrowTransactionID: escrow.ID,
		ContractID:          escrow.ContractID,
		GrossAmount:         escrow.GrossAmount,
		PlatformFee:         fee,
		GatewayFee:          escrow.GatewayFee,
		NetRevenue:          fee,
		Currency:            currency,
		RecordedAt:          at,
	}

	if err := l.repo.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("create revenue entry for escrow %s: %w", escrow.ID, err)
	}

	l.log.Info().
		Str("escrow_id", escrow.ID.String()).
		Int64("gross_amount", entry.GrossAmount).
		Int64("net_revenue", entry.NetRevenue).
		Msg("platform revenue recorded")

	return entry, nil
}

// PlatformFee returns the row's fee, or the configured percentage of the gross
// amount rounded half up when the row has none.
func (l *RevenueLedgerImpl) PlatformFee(escrow *domain.EscrowTransaction) int64 {
	if escrow.PlatformFee > 0 {
		return escrow.PlatformFee
	}
	return decimal.NewFromInt(escrow.GrossAmount).
		Mul(l.feePercent).
		Div(hundred).
		Round(0).
		IntPart()
}
