package postgres

import (
	"context"
	"fmt"

	"campaign-escrow/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// NotificationRepo implements ports.NotificationRepository.
type NotificationRepo struct{}

// NewNotificationRepo creates a new NotificationRepo. Notifications are only
// written inside a transition's transaction, so it holds no pool.
func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{}
}

// Create inserts a notification within a database transaction.
func (r *NotificationRepo) Create(ctx context.Context, tx pgx.Tx, n *domain.Notification) error {
	query := `INSERT INTO notifications (id, user_id, title, message, type, link, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query, n.ID, n.UserID, n.Title, n.Message, n.Type, n.Link, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
