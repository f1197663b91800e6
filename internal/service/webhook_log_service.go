package service

import (
	"context"
	"fmt"
	"time"

	"campaign-escrow/internal/core/domain"
	"campaign-escrow/internal/core/ports"
	"campaign-escrow/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WebhookLogServiceImpl implements ports.WebhookLogService over the webhook_logs table.
type WebhookLogServiceImpl struct {
	repo ports.WebhookLogRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewWebhookLogService creates a new WebhookLogServiceImpl.
func NewWebhookLogService(repo ports.WebhookLogRepository, log zerolog.Logger) *WebhookLogServiceImpl {
	return &WebhookLogServiceImpl{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Record inserts an unprocessed log row for event. A row left unprocessed by an
// earlier failed delivery of the same gateway event id is reused instead.
func (s *WebhookLogServiceImpl) Record(ctx context.Context, event domain.GatewayEvent, raw []byte) (*domain.WebhookLog, error) {
	eventID := event.GatewayEventID()

	if eventID != "" {
		existing, err := s.repo.GetByEventID(ctx, domain.WebhookSourceRazorpay, eventID)
		if err != nil {
			return nil, apperror.ErrStorageFailure(fmt.Errorf("lookup webhook log %s: %w", eventID, err))
		}
		if existing != nil {
			s.log.Info().
				Str("event_id", eventID).
				Str("webhook_log_id", existing.ID.String()).
				Msg("reusing webhook log from earlier delivery")
			return existing, nil
		}
	}

	entry := &domain.WebhookLog{
		ID:        uuid.New(),
		Source:    domain.WebhookSourceRazorpay,
		EventType: event.EventName(),
		Payload:   raw,
		CreatedAt: s.now(),
	}
	if eventID != "" {
		entry.EventID = &eventID
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("create webhook log: %w", err))
	}
	return entry, nil
}

// MarkProcessed flags the entry as handled. Keyed by gateway event id when the
// gateway sent one, otherwise by row id.
func (s *WebhookLogServiceImpl) MarkProcessed(ctx context.Context, entry *domain.WebhookLog) error {
	at := s.now()

	var err error
	if entry.EventID != nil {
		err = s.repo.MarkProcessed(ctx, entry.Source, *entry.EventID, at)
	} else {
		err = s.repo.MarkProcessedByID(ctx, entry.ID, at)
	}
	if err != nil {
		return apperror.ErrStorageFailure(fmt.Errorf("mark webhook log %s processed: %w", entry.ID, err))
	}

	entry.Processed = true
	entry.ProcessedAt = &at
	return nil
}

// MarkFailed stores the failure cause. The entry stays unprocessed so replay picks it up.
func (s *WebhookLogServiceImpl) MarkFailed(ctx context.Context, entry *domain.WebhookLog, cause error) error {
	msg := cause.Error()
	if err := s.repo.MarkFailed(ctx, entry.ID, msg); err != nil {
		return apperror.ErrStorageFailure(fmt.Errorf("mark webhook log %s failed: %w", entry.ID, err))
	}
	entry.LastError = &msg
	return nil
}

// IsProcessed reports whether an event with this gateway id was already handled.
func (s *WebhookLogServiceImpl) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, nil
	}
	existing, err := s.repo.GetByEventID(ctx, domain.WebhookSourceRazorpay, eventID)
	if err != nil {
		return false, apperror.ErrStorageFailure(fmt.Errorf("lookup webhook log %s: %w", eventID, err))
	}
	return existing != nil && existing.Processed, nil
}

// ListUnprocessed returns entries still unprocessed after olderThan has elapsed.
func (s *WebhookLogServiceImpl) ListUnprocessed(ctx context.Context, olderThan time.Duration, limit int) ([]domain.WebhookLog, error) {
	entries, err := s.repo.ListUnprocessed(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("list unprocessed webhook logs: %w", err))
	}
	return entries, nil
}
