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

const (
	titlePaymentSecured = "Payment secured in escrow"
	titlePaymentFailed  = "Payment failed"
)

// NotificationEmitterImpl implements ports.NotificationEmitter.
type NotificationEmitterImpl struct {
	repo ports.NotificationRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewNotificationEmitter creates a new NotificationEmitterImpl.
func NewNotificationEmitter(repo ports.NotificationRepository, log zerolog.Logger) *NotificationEmitterImpl {
	return &NotificationEmitterImpl{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// PaymentSecured tells the influencer the brand's money is held.
func (n *NotificationEmitterImpl) PaymentSecured(ctx context.Context, tx pgx.Tx, escrow *domain.EscrowTransaction) error {
	msg := fmt.Sprintf("The brand's payment of %s for your contract is now held in escrow.",
		formatAmount(escrow.GrossAmount, escrow.Currency))
	return n.emit(ctx, tx, escrow.InfluencerID, titlePaymentSecured, msg, domain.NotificationPaymentReceived, escrow)
}

// PaymentFailed tells the brand its payment did not go through.
func (n *NotificationEmitterImpl) PaymentFailed(ctx context.Context, tx pgx.Tx, escrow *domain.EscrowTransaction, reason string) error {
	msg := "Your payment for the contract could not be completed."
	if reason != "" {
		msg = fmt.Sprintf("Your payment for the contract could not be completed: %s", reason)
	}
	return n.emit(ctx, tx, escrow.BrandID, titlePaymentFailed, msg, domain.NotificationPaymentFailed, escrow)
}

func (n *NotificationEmitterImpl) emit(
	ctx context.Context,
	tx pgx.Tx,
	userID uuid.UUID,
	title, message string,
	typ domain.NotificationType,
	escrow *domain.EscrowTransaction,
) error {
	notification := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		Link:      domain.ContractLink(escrow.ContractID),
		CreatedAt: n.now(),
	}
	if err := n.repo.Create(ctx, tx, notification); err != nil {
		return fmt.Errorf("create %s notification: %w", typ, err)
	}
	n.log.Debug().
		Str("user_id", userID.String()).
		Str("type", string(typ)).
		Str("escrow_id", escrow.ID.String()).
		Msg("notification queued")
	return nil
}

// formatAmount renders minor units as "1500.00 INR".
func formatAmount(minor int64, currency string) string {
	s := decimal.New(minor, -2).StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}
