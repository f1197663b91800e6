package service

import (
	"context"
	"time"

	"campaign-escrow/internal/core/domain"
	"campaign-escrow/internal/core/ports"
	"campaign-escrow/pkg/apperror"

	"github.com/rs/zerolog"
)

// WebhookProcessorImpl implements ports.WebhookProcessor: decode, dedup,
// audit log, reconcile, mark processed.
type WebhookProcessorImpl struct {
	logs       ports.WebhookLogService
	reconciler ports.EscrowReconciler
	dedup      ports.EventDedupCache
	dedupTTL   time.Duration
	log        zerolog.Logger
}

// NewWebhookProcessor creates a new WebhookProcessorImpl.
func NewWebhookProcessor(
	logs ports.WebhookLogService,
	reconciler ports.EscrowReconciler,
	dedup ports.EventDedupCache,
	dedupTTL time.Duration,
	log zerolog.Logger,
) *WebhookProcessorImpl {
	return &WebhookProcessorImpl{
		logs:       logs,
		reconciler: reconciler,
		dedup:      dedup,
		dedupTTL:   dedupTTL,
		log:        log,
	}
}

// Process handles a verified webhook body.
func (s *WebhookProcessorImpl) Process(ctx context.Context, raw []byte, headerEventID string) (*ports.ReconcileResult, error) {
	event, err := domain.DecodeGatewayEvent(raw, headerEventID)
	if err != nil {
		return nil, apperror.ErrMalformedEvent(err)
	}
	return s.handle(ctx, event, raw, nil)
}

// Replay runs a stored, unprocessed log entry through the pipeline again.
func (s *WebhookProcessorImpl) Replay(ctx context.Context, entry *domain.WebhookLog) (*ports.ReconcileResult, error) {
	var eventID string
	if entry.EventID != nil {
		eventID = *entry.EventID
	}
	event, err := domain.DecodeGatewayEvent(entry.Payload, eventID)
	if err != nil {
		return nil, apperror.ErrMalformedEvent(err)
	}
	return s.handle(ctx, event, entry.Payload, entry)
}

func (s *WebhookProcessorImpl) handle(ctx context.Context, event domain.GatewayEvent, raw []byte, entry *domain.WebhookLog) (*ports.ReconcileResult, error) {
	eventID := event.GatewayEventID()

	if eventID != "" {
		dup, err := s.alreadyProcessed(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if dup {
			s.log.Info().
				Str("event", event.EventName()).
				Str("event_id", eventID).
				Msg("duplicate gateway event, skipping")
			return &ports.ReconcileResult{Outcome: ports.OutcomeDuplicate}, nil
		}
	}

	if entry == nil {
		var err error
		entry, err = s.logs.Record(ctx, event, raw)
		if err != nil {
			return nil, err
		}
	}

	result, err := s.reconciler.Apply(ctx, event)
	if err != nil {
		if markErr := s.logs.MarkFailed(ctx, entry, err); markErr != nil {
			s.log.Error().Err(markErr).Str("webhook_log_id", entry.ID.String()).Msg("failed to record webhook failure")
		}
		return nil, err
	}

	if err := s.logs.MarkProcessed(ctx, entry); err != nil {
		return nil, err
	}

	if eventID != "" {
		if err := s.dedup.MarkProcessed(ctx, eventID, s.dedupTTL); err != nil {
			s.log.Warn().Err(err).Str("event_id", eventID).Msg("failed to cache processed event id")
		}
	}

	s.log.Info().
		Str("event", event.EventName()).
		Str("event_id", eventID).
		Str("outcome", string(result.Outcome)).
		Msg("gateway event handled")
	return result, nil
}

// alreadyProcessed checks Redis first, then the webhook log. A Redis error
// falls through to the database.
func (s *WebhookProcessorImpl) alreadyProcessed(ctx context.Context, eventID string) (bool, error) {
	cached, err := s.dedup.IsProcessed(ctx, eventID)
	if err != nil {
		s.log.Warn().Err(err).Str("event_id", eventID).Msg("redis dedup check failed, falling through to DB")
	}
	if cached {
		return true, nil
	}
	return s.logs.IsProcessed(ctx, eventID)
}
