package postgres

import (
	"context"
	"testing"
	"time"

	"campaign-escrow/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevenueRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	e := &domain.RevenueEntry{
		ID:                  uuid.New(),
		EscrowTransactionID: uuid.New(),
		ContractID:          uuid.New(),
		GrossAmount:         1000,
		PlatformFee:         100,
		GatewayFee:          20,
		NetRevenue:          100,
		Currency:            "INR",
		RecordedAt:          time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO platform_revenue").
		WithArgs(e.ID, e.EscrowTransactionID, e.ContractID, e.GrossAmount,
			e.PlatformFee, e.GatewayFee, e.NetRevenue, e.Currency, e.RecordedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, NewRevenueRepo().Create(context.Background(), tx, e))
	assert.NoError(t, mock.ExpectationsWereMet())
}
