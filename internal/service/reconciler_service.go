package service

import (
	"context"
	"fmt"
	"time"

	"campaign-escrow/internal/core/domain"
	"campaign-escrow/internal/core/ports"
	"campaign-escrow/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// EscrowReconcilerImpl drives escrow transactions through
// CREATED -> HELD_IN_ESCROW -> PAID_OUT (or REFUNDED) from gateway events.
//
// Each transition and its side-effect rows are written in one database
// transaction. Guards are conditional updates, so concurrent deliveries of the
// same event apply at most once.
type EscrowReconcilerImpl struct {
	escrowRepo ports.EscrowRepository
	payoutRepo ports.PayoutRepository
	ledger     ports.RevenueLedger
	notifier   ports.NotificationEmitter
	publisher  ports.EventPublisher
	transactor ports.DBTransactor
	log        zerolog.Logger
	now        func() time.Time
}

// NewEscrowReconciler creates a new EscrowReconcilerImpl.
func NewEscrowReconciler(
	escrowRepo ports.EscrowRepository,
	payoutRepo ports.PayoutRepository,
	ledger ports.RevenueLedger,
	notifier ports.NotificationEmitter,
	publisher ports.EventPublisher,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *EscrowReconcilerImpl {
	return &EscrowReconcilerImpl{
		escrowRepo: escrowRepo,
		payoutRepo: payoutRepo,
		ledger:     ledger,
		notifier:   notifier,
		publisher:  publisher,
		transactor: transactor,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Apply dispatches event by type. Lookup misses and unknown event types are
// not errors; only storage failures are returned.
func (s *EscrowReconcilerImpl) Apply(ctx context.Context, event domain.GatewayEvent) (*ports.ReconcileResult, error) {
	switch e := event.(type) {
	case domain.PaymentCaptured:
		return s.applyCaptured(ctx, e)
	case domain.PaymentFailed:
		return s.applyFailed(ctx, e)
	case domain.RefundCreated:
		return s.applyRefund(ctx, e)
	case domain.PayoutProcessed:
		return s.applyPayout(ctx, e)
	default:
		s.log.Info().
			Str("event", event.EventName()).
			Str("event_id", event.GatewayEventID()).
			Msg("unhandled gateway event type")
		return &ports.ReconcileResult{Outcome: ports.OutcomeIgnored}, nil
	}
}

func (s *EscrowReconcilerImpl) applyCaptured(ctx context.Context, e domain.PaymentCaptured) (*ports.ReconcileResult, error) {
	escrow, err := s.escrowRepo.GetByOrderID(ctx, e.OrderID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get escrow by order %s: %w", e.OrderID, err))
	}
	if escrow == nil {
		return s.lookupMiss(e, "order_id", e.OrderID), nil
	}
	if !escrow.CanTransition(domain.EscrowStatusHeldInEscrow) {
		return s.noop(e, escrow), nil
	}

	at := domain.StampAfter(s.now(), escrow.CreatedAt)
	held := domain.EscrowStatusHeldInEscrow
	captured := domain.PaymentStatusCaptured
	paymentID := e.PaymentID

	applied, err := s.inTx(ctx, func(tx pgx.Tx) (bool, error) {
		ok, err := s.escrowRepo.Update(ctx, tx, escrow.ID, ports.EscrowUpdate{
			EscrowStatus:      &held,
			PaymentStatus:     &captured,
			GatewayPaymentID:  &paymentID,
			PaymentCapturedAt: &at,
			AppendEvent:       &domain.EventHistory{Event: e.Name, ReceivedAt: at},
			ExpectStatus:      []domain.EscrowStatus{domain.EscrowStatusCreated},
		})
		if err != nil || !ok {
			return ok, err
		}
		if _, err := s.ledger.RecordCapture(ctx, tx, escrow, at); err != nil {
			return false, err
		}
		if err := s.notifier.PaymentSecured(ctx, tx, escrow); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.noop(e, escrow), nil
	}

	s.log.Info().
		Str("escrow_id", escrow.ID.String()).
		Str("event", e.Name).
		Str("order_id", e.OrderID).
		Str("payment_id", e.PaymentID).
		Msg("escrow held")
	s.publish(ctx, domain.NewEscrowEvent(domain.EscrowEventHeld, escrow, held, e.ID, at))
	return s.applied(escrow), nil
}

func (s *EscrowReconcilerImpl) applyFailed(ctx context.Context, e domain.PaymentFailed) (*ports.ReconcileResult, error) {
	escrow, err := s.escrowRepo.GetByOrderID(ctx, e.OrderID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get escrow by order %s: %w", e.OrderID, err))
	}
	if escrow == nil {
		return s.lookupMiss(e, "order_id", e.OrderID), nil
	}

	at := domain.StampAfter(s.now(), escrow.CreatedAt)
	failed := domain.PaymentStatusFailed

	applied, err := s.inTx(ctx, func(tx pgx.Tx) (bool, error) {
		ok, err := s.escrowRepo.Update(ctx, tx, escrow.ID, ports.EscrowUpdate{
			PaymentStatus: &failed,
			AppendEvent:   &domain.EventHistory{Event: e.Name, ReceivedAt: at, Error: e.ErrorDescription},
		})
		if err != nil || !ok {
			return ok, err
		}
		if err := s.notifier.PaymentFailed(ctx, tx, escrow, e.ErrorDescription); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.noop(e, escrow), nil
	}

	s.log.Info().
		Str("escrow_id", escrow.ID.String()).
		Str("event", e.Name).
		Str("order_id", e.OrderID).
		Str("error_code", e.ErrorCode).
		Msg("escrow payment failed")
	s.publish(ctx, domain.NewEscrowEvent(domain.EscrowEventPaymentFailed, escrow, escrow.EscrowStatus, e.ID, at))
	return s.applied(escrow), nil
}

// applyRefund accepts a refund from any state except REFUNDED itself.
func (s *EscrowReconcilerImpl) applyRefund(ctx context.Context, e domain.RefundCreated) (*ports.ReconcileResult, error) {
	escrow, err := s.escrowRepo.GetByPaymentID(ctx, e.PaymentID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get escrow by payment %s: %w", e.PaymentID, err))
	}
	if escrow == nil {
		return s.lookupMiss(e, "payment_id", e.PaymentID), nil
	}
	if !escrow.CanTransition(domain.EscrowStatusRefunded) {
		return s.noop(e, escrow), nil
	}

	at := domain.StampAfter(s.now(), escrow.CreatedAt)
	refunded := domain.EscrowStatusRefunded
	paymentRefunded := domain.PaymentStatusRefunded

	applied, err := s.inTx(ctx, func(tx pgx.Tx) (bool, error) {
		return s.escrowRepo.Update(ctx, tx, escrow.ID, ports.EscrowUpdate{
			EscrowStatus:  &refunded,
			PaymentStatus: &paymentRefunded,
			RefundedAt:    &at,
			AppendEvent:   &domain.EventHistory{Event: e.Name, ReceivedAt: at},
			ExpectStatus: []domain.EscrowStatus{
				domain.EscrowStatusCreated,
				domain.EscrowStatusHeldInEscrow,
				domain.EscrowStatusPaidOut,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.noop(e, escrow), nil
	}

	s.log.Info().
		Str("escrow_id", escrow.ID.String()).
		Str("event", e.Name).
		Str("payment_id", e.PaymentID).
		Str("refund_id", e.RefundID).
		Str("from_status", string(escrow.EscrowStatus)).
		Msg("escrow refunded")
	s.publish(ctx, domain.NewEscrowEvent(domain.EscrowEventRefunded, escrow, refunded, e.ID, at))
	return s.applied(escrow), nil
}

func (s *EscrowReconcilerImpl) applyPayout(ctx context.Context, e domain.PayoutProcessed) (*ports.ReconcileResult, error) {
	payout, err := s.payoutRepo.GetByGatewayPayoutID(ctx, e.PayoutID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get payout %s: %w", e.PayoutID, err))
	}
	if payout == nil {
		return s.lookupMiss(e, "payout_id", e.PayoutID), nil
	}
	if payout.Status != domain.PayoutStatusPending {
		s.log.Debug().
			Str("payout_id", payout.ID.String()).
			Str("status", string(payout.Status)).
			Msg("payout already settled, skipping")
		return &ports.ReconcileResult{Outcome: ports.OutcomeNoop, EscrowID: &payout.EscrowTransactionID}, nil
	}

	escrow, err := s.escrowRepo.GetByID(ctx, payout.EscrowTransactionID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get escrow %s: %w", payout.EscrowTransactionID, err))
	}

	at := s.now()
	if escrow != nil {
		at = domain.StampAfter(at, escrow.CreatedAt)
	}

	status := domain.PayoutStatusFromGateway(e.Status)
	var failureReason *string
	if status == domain.PayoutStatusFailed {
		reason := e.FailureReason
		if reason == "" {
			reason = "gateway payout status: " + e.Status
		}
		failureReason = &reason
	}

	paidOut := domain.EscrowStatusPaidOut
	escrowMoved := false

	applied, err := s.inTx(ctx, func(tx pgx.Tx) (bool, error) {
		ok, err := s.payoutRepo.Settle(ctx, tx, payout.ID, status, at, failureReason)
		if err != nil || !ok {
			return ok, err
		}
		if status != domain.PayoutStatusCompleted || escrow == nil {
			return true, nil
		}
		escrowMoved, err = s.escrowRepo.Update(ctx, tx, escrow.ID, ports.EscrowUpdate{
			EscrowStatus: &paidOut,
			PaidOutAt:    &at,
			AppendEvent:  &domain.EventHistory{Event: e.Name, ReceivedAt: at},
			ExpectStatus: []domain.EscrowStatus{domain.EscrowStatusHeldInEscrow},
		})
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return &ports.ReconcileResult{Outcome: ports.OutcomeNoop, EscrowID: &payout.EscrowTransactionID}, nil
	}

	logEvt := s.log.Info().
		Str("payout_id", payout.ID.String()).
		Str("gateway_payout_id", e.PayoutID).
		Str("event", e.Name).
		Str("status", string(status))
	if escrow == nil {
		logEvt.Msg("payout settled without escrow row")
		return &ports.ReconcileResult{Outcome: ports.OutcomeApplied, EscrowID: &payout.EscrowTransactionID}, nil
	}
	logEvt.Str("escrow_id", escrow.ID.String()).Bool("escrow_paid_out", escrowMoved).Msg("payout settled")

	switch {
	case status == domain.PayoutStatusFailed:
		s.publish(ctx, domain.NewEscrowEvent(domain.EscrowEventPayoutFailed, escrow, escrow.EscrowStatus, e.ID, at))
	case escrowMoved:
		s.publish(ctx, domain.NewEscrowEvent(domain.EscrowEventPaidOut, escrow, paidOut, e.ID, at))
	default:
		s.log.Warn().
			Str("escrow_id", escrow.ID.String()).
			Str("escrow_status", string(escrow.EscrowStatus)).
			Msg("payout completed but escrow was not held; escrow status left unchanged")
	}
	return s.applied(escrow), nil
}

// inTx runs fn in a database transaction and commits only when fn reports the
// guarded update applied. Any error is a storage failure.
func (s *EscrowReconcilerImpl) inTx(ctx context.Context, fn func(tx pgx.Tx) (bool, error)) (bool, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, apperror.ErrStorageFailure(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	applied, err := fn(dbTx)
	if err != nil {
		s.log.Error().Err(err).Msg("escrow transition failed, rolling back")
		return false, apperror.ErrStorageFailure(err)
	}
	if !applied {
		return false, nil
	}

	if err := dbTx.Commit(ctx); err != nil {
		return false, apperror.ErrStorageFailure(fmt.Errorf("commit tx: %w", err))
	}
	return true, nil
}

func (s *EscrowReconcilerImpl) publish(ctx context.Context, event domain.EscrowEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).
			Str("type", event.Type).
			Str("escrow_id", event.EscrowTransactionID.String()).
			Msg("failed to publish escrow event")
	}
}

func (s *EscrowReconcilerImpl) lookupMiss(event domain.GatewayEvent, key, value string) *ports.ReconcileResult {
	s.log.Warn().
		Err(domain.ErrLookupMiss).
		Str("event", event.EventName()).
		Str("event_id", event.GatewayEventID()).
		Str(key, value).
		Msg("gateway event matches no record")
	return &ports.ReconcileResult{Outcome: ports.OutcomeLookupMiss}
}

func (s *EscrowReconcilerImpl) noop(event domain.GatewayEvent, escrow *domain.EscrowTransaction) *ports.ReconcileResult {
	s.log.Info().
		Str("escrow_id", escrow.ID.String()).
		Str("event", event.EventName()).
		Str("escrow_status", string(escrow.EscrowStatus)).
		Msg("transition already applied, skipping")
	return &ports.ReconcileResult{Outcome: ports.OutcomeNoop, EscrowID: &escrow.ID}
}

func (s *EscrowReconcilerImpl) applied(escrow *domain.EscrowTransaction) *ports.ReconcileResult {
	return &ports.ReconcileResult{Outcome: ports.OutcomeApplied, EscrowID: &escrow.ID}
}
