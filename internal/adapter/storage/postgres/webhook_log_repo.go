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

const webhookLogColumns = `id, source, event_type, event_id, payload, processed, processed_at, last_error, created_at`

// WebhookLogRepo implements ports.WebhookLogRepository.
type WebhookLogRepo struct {
	pool Pool
}

// NewWebhookLogRepo creates a new WebhookLogRepo.
func NewWebhookLogRepo(pool Pool) *WebhookLogRepo {
	return &WebhookLogRepo{pool: pool}
}

// Create inserts a log row. When a row with the same (source, event_id) already
// exists, that row's id is written back to l instead.
func (r *WebhookLogRepo) Create(ctx context.Context, l *domain.WebhookLog) error {
	query := `INSERT INTO webhook_logs (id, source, event_type, event_id, payload, processed, processed_at, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (source, event_id) DO UPDATE SET event_type = EXCLUDED.event_type
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		l.ID, l.Source, l.EventType, l.EventID, l.Payload,
		l.Processed, l.ProcessedAt, l.LastError, l.CreatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("insert webhook log: %w", err)
	}
	return nil
}

// GetByEventID fetches a log row by gateway event id.
func (r *WebhookLogRepo) GetByEventID(ctx context.Context, source, eventID string) (*domain.WebhookLog, error) {
	query := `SELECT ` + webhookLogColumns + ` FROM webhook_logs WHERE source = $1 AND event_id = $2`

	l := &domain.WebhookLog{}
	if err := scanWebhookLog(r.pool.QueryRow(ctx, query, source, eventID), l); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan webhook log: %w", err)
	}
	return l, nil
}

// MarkProcessed flags the row for (source, eventID) as handled.
func (r *WebhookLogRepo) MarkProcessed(ctx context.Context, source, eventID string, at time.Time) error {
	query := `UPDATE webhook_logs SET processed = TRUE, processed_at = $1
		WHERE source = $2 AND event_id = $3`

	if _, err := r.pool.Exec(ctx, query, at, source, eventID); err != nil {
		return fmt.Errorf("mark webhook log processed: %w", err)
	}
	return nil
}

// MarkProcessedByID flags a row without a gateway event id as handled.
func (r *WebhookLogRepo) MarkProcessedByID(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE webhook_logs SET processed = TRUE, processed_at = $1 WHERE id = $2`

	if _, err := r.pool.Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("mark webhook log processed: %w", err)
	}
	return nil
}

// MarkFailed records the last handling error on an unprocessed row.
func (r *WebhookLogRepo) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	query := `UPDATE webhook_logs SET last_error = $1 WHERE id = $2 AND processed = FALSE`

	if _, err := r.pool.Exec(ctx, query, lastError, id); err != nil {
		return fmt.Errorf("mark webhook log failed: %w", err)
	}
	return nil
}

// ListUnprocessed returns the oldest unprocessed rows created before createdBefore.
func (r *WebhookLogRepo) ListUnprocessed(ctx context.Context, createdBefore time.Time, limit int) ([]domain.WebhookLog, error) {
	query := `SELECT ` + webhookLogColumns + ` FROM webhook_logs
		WHERE processed = FALSE AND created_at < $1
		ORDER BY created_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed webhook logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.WebhookLog
	for rows.Next() {
		var l domain.WebhookLog
		if err := scanWebhookLog(rows, &l); err != nil {
			return nil, fmt.Errorf("scan webhook log row: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook log rows: %w", err)
	}
	return logs, nil
}

func scanWebhookLog(row pgx.Row, l *domain.WebhookLog) error {
	return row.Scan(
		&l.ID, &l.Source, &l.EventType, &l.EventID, &l.Payload,
		&l.Processed, &l.ProcessedAt, &l.LastError, &l.CreatedAt,
	)
}
