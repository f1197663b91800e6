package service

import (
	"context"
	"errors"
	"testing"

	"campaign-escrow/internal/core/domain"
	"campaign-escrow/internal/core/ports/mocks"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRevenueLedger_PlatformFee(t *testing.T) {
	tests := []struct {
		name       string
		gross      int64
		rowFee     int64
		feePercent float64
		want       int64
	}{
		{"row fee wins", 1000, 100, 25, 100},
		{"percent when row has none", 1000, 0, 10, 100},
		{"100.5 rounds half up", 1005, 0, 10, 101},
		{"100.4 rounds down", 1004, 0, 10, 100},
		{"2497.5 with fractional percent", 99900, 0, 2.5, 2498},
		{"zero percent", 1000, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewRevenueLedger(nil, tt.feePercent, "INR", newTestLogger())
			escrow := newEscrow(domain.EscrowStatusCreated)
			escrow.GrossAmount = tt.gross
			escrow.PlatformFee = tt.rowFee
			assert.Equal(t, tt.want, l.PlatformFee(escrow))
		})
	}
}

func TestRevenueLedger_RecordCapture(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRevenueRepository(ctrl)
	l := NewRevenueLedger(repo, 10, "INR", newTestLogger())

	ctx := context.Background()
	tx := &mockTx{}
	escrow := newEscrow(domain.EscrowStatusCreated)
	escrow.GatewayFee = 20
	escrow.Currency = ""

	repo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, e *domain.RevenueEntry) error {
			assert.Equal(t, escrow.ContractID, e.ContractID)
			assert.Equal(t, int64(20), e.GatewayFee)
			assert.Equal(t, "INR", e.Currency, "falls back to configured currency")
			assert.Equal(t, fixedNow, e.RecordedAt)
			return nil
		})

	entry, err := l.RecordCapture(ctx, tx, escrow, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(100), entry.NetRevenue)
	assert.Equal(t, entry.PlatformFee, entry.NetRevenue)
}

func TestRevenueLedger_RecordCapture_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRevenueRepository(ctrl)
	l := NewRevenueLedger(repo, 10, "INR", newTestLogger())

	repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("unique violation"))

	entry, err := l.RecordCapture(context.Background(), &mockTx{}, newEscrow(domain.EscrowStatusCreated), fixedNow)
	require.Error(t, err)
	assert.Nil(t, entry)
	assert.Contains(t, err.Error(), "unique violation")
}
