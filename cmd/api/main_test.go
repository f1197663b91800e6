package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"campaign-escrow/internal/core/domain"
	"campaign-escrow/internal/core/ports"
	"campaign-escrow/internal/core/ports/mocks"
	"campaign-escrow/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())

	replayC, _, err := root.Find([]string{"replay"})
	require.NoError(t, err)
	olderThan, err := replayC.Flags().GetDuration("older-than")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, olderThan)
	limit, err := replayC.Flags().GetInt("limit")
	require.NoError(t, err)
	assert.Equal(t, 100, limit)

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestReplay_CountsOutcomes(t *testing.T) {
	ctrl := gomock.NewController(t)
	logs := mocks.NewMockWebhookLogService(ctrl)
	processor := mocks.NewMockWebhookProcessor(ctrl)

	entries := []domain.WebhookLog{{ID: uuid.New()}, {ID: uuid.New()}, {ID: uuid.New()}}
	logs.EXPECT().ListUnprocessed(gomock.Any(), 5*time.Minute, 100).Return(entries, nil)

	gomock.InOrder(
		processor.EXPECT().Replay(gomock.Any(), &entries[0]).Return(&ports.ReconcileResult{Outcome: ports.OutcomeApplied}, nil),
		processor.EXPECT().Replay(gomock.Any(), &entries[1]).Return(nil, apperror.ErrStorageFailure(errors.New("pg down"))),
		processor.EXPECT().Replay(gomock.Any(), &entries[2]).Return(&ports.ReconcileResult{Outcome: ports.OutcomeNoop}, nil),
	)

	summary, err := replay(context.Background(), logs, processor, 5*time.Minute, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Outcomes[ports.OutcomeApplied])
	assert.Equal(t, 1, summary.Outcomes[ports.OutcomeNoop])
}

func TestReplay_ListError(t *testing.T) {
	ctrl := gomock.NewController(t)
	logs := mocks.NewMockWebhookLogService(ctrl)
	processor := mocks.NewMockWebhookProcessor(ctrl)

	logs.EXPECT().ListUnprocessed(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrStorageFailure(errors.New("pg down")))

	_, err := replay(context.Background(), logs, processor, time.Minute, 10)
	assert.Error(t, err)
}
