package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"campaign-escrow/config"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "testuser",
		Password:        "testpass",
		DBName:          "testdb",
		SSLMode:         "disable",
		MaxConns:        20,
		MinConns:        5,
		ConnMaxLifetime: 30 * time.Minute,
	}

	poolCfg, err := poolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(20), poolCfg.MaxConns)
	assert.Equal(t, int32(5), poolCfg.MinConns)
	assert.Equal(t, 30*time.Minute, poolCfg.MaxConnLifetime)
	assert.Equal(t, "localhost", poolCfg.ConnConfig.Host)
	assert.Equal(t, uint16(5432), poolCfg.ConnConfig.Port)
	assert.Equal(t, "testdb", poolCfg.ConnConfig.Database)
}

func TestPoolConfig_InvalidDSN(t *testing.T) {
	_, err := poolConfig(config.DatabaseConfig{Host: "localhost", Port: -1, SSLMode: "bogus"})
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	hc := NewHealthCheck(mock)
	assert.Equal(t, "postgresql", hc.Name())

	mock.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	assert.NoError(t, hc.Ping(context.Background()))

	mock.ExpectExec("SELECT 1").WillReturnError(errors.New("connection refused"))
	assert.Error(t, hc.Ping(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_Begin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	tx, err := NewTransactor(mock).Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
