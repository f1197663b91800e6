package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"campaign-escrow/internal/core/domain"
	"campaign-escrow/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- In-Memory Transactor ---

// memTx undoes the writes made through it unless committed.
type memTx struct {
	pgx.Tx
	mu   sync.Mutex
	undo []func()
	done bool
}

func (t *memTx) onRollback(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undo = append(t.undo, f)
}

func (t *memTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	return nil
}

type memTransactor struct{}

func (memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{}, nil
}

func registerUndo(tx pgx.Tx, f func()) {
	if mt, ok := tx.(*memTx); ok {
		mt.onRollback(f)
	}
}

// --- In-Memory Escrow Repo ---

type memEscrowRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.EscrowTransaction
}

func newMemEscrowRepo() *memEscrowRepo {
	return &memEscrowRepo{rows: make(map[uuid.UUID]*domain.EscrowTransaction)}
}

func cloneEscrow(e *domain.EscrowTransaction) *domain.EscrowTransaction {
	c := *e
	c.WebhookEvents = append([]domain.EventHistory(nil), e.WebhookEvents...)
	return &c
}

func (r *memEscrowRepo) add(e *domain.EscrowTransaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[e.ID] = cloneEscrow(e)
}

func (r *memEscrowRepo) find(match func(*domain.EscrowTransaction) bool) *domain.EscrowTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if match(e) {
			return cloneEscrow(e)
		}
	}
	return nil
}

func (r *memEscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.EscrowTransaction, error) {
	return r.find(func(e *domain.EscrowTransaction) bool { return e.ID == id }), nil
}

func (r *memEscrowRepo) GetByOrderID(ctx context.Context, gatewayOrderID string) (*domain.EscrowTransaction, error) {
	return r.find(func(e *domain.EscrowTransaction) bool { return e.GatewayOrderID == gatewayOrderID }), nil
}

func (r *memEscrowRepo) GetByPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.EscrowTransaction, error) {
	return r.find(func(e *domain.EscrowTransaction) bool {
		return e.GatewayPaymentID != nil && *e.GatewayPaymentID == gatewayPaymentID
	}), nil
}

func (r *memEscrowRepo) Update(ctx context.Context, tx pgx.Tx, id uuid.UUID, upd ports.EscrowUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return false, nil
	}
	if len(upd.ExpectStatus) > 0 && !containsStatus(upd.ExpectStatus, row.EscrowStatus) {
		return false, nil
	}

	prev := cloneEscrow(row)
	if upd.EscrowStatus != nil {
		row.EscrowStatus = *upd.EscrowStatus
	}
	if upd.PaymentStatus != nil {
		row.PaymentStatus = *upd.PaymentStatus
	}
	if upd.GatewayPaymentID != nil {
		v := *upd.GatewayPaymentID
		row.GatewayPaymentID = &v
	}
	if upd.PaymentCapturedAt != nil && row.PaymentCapturedAt == nil {
		v := *upd.PaymentCapturedAt
		row.PaymentCapturedAt = &v
	}
	if upd.RefundedAt != nil && row.RefundedAt == nil {
		v := *upd.RefundedAt
		row.RefundedAt = &v
	}
	if upd.PaidOutAt != nil && row.PaidOutAt == nil {
		v := *upd.PaidOutAt
		row.PaidOutAt = &v
	}
	if upd.AppendEvent != nil {
		row.WebhookEvents = append(row.WebhookEvents, *upd.AppendEvent)
	}
	row.UpdatedAt = time.Now().UTC()

	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows[id] = prev
	})
	return true, nil
}

func containsStatus(list []domain.EscrowStatus, s domain.EscrowStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// --- In-Memory Payout Repo ---

type memPayoutRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Payout
}

func newMemPayoutRepo() *memPayoutRepo {
	return &memPayoutRepo{rows: make(map[uuid.UUID]*domain.Payout)}
}

func (r *memPayoutRepo) add(p *domain.Payout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *p
	r.rows[p.ID] = &c
}

func (r *memPayoutRepo) GetByGatewayPayoutID(ctx context.Context, gatewayPayoutID string) (*domain.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.GatewayPayoutID == gatewayPayoutID {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memPayoutRepo) Settle(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PayoutStatus, at time.Time, failureReason *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.Status != domain.PayoutStatusPending {
		return false, nil
	}
	prev := *row
	row.Status = status
	if status == domain.PayoutStatusCompleted {
		completed := at
		row.CompletedAt = &completed
	} else {
		failed := at
		row.FailedAt = &failed
	}
	row.FailureReason = failureReason
	row.UpdatedAt = at

	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows[id] = &prev
	})
	return true, nil
}

// --- In-Memory Webhook Log Repo ---

type memWebhookLogRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.WebhookLog
}

func newMemWebhookLogRepo() *memWebhookLogRepo {
	return &memWebhookLogRepo{rows: make(map[uuid.UUID]*domain.WebhookLog)}
}

func (r *memWebhookLogRepo) byEventID(source, eventID string) *domain.WebhookLog {
	for _, l := range r.rows {
		if l.Source == source && l.EventID != nil && *l.EventID == eventID {
			return l
		}
	}
	return nil
}

func (r *memWebhookLogRepo) Create(ctx context.Context, l *domain.WebhookLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.EventID != nil {
		if existing := r.byEventID(l.Source, *l.EventID); existing != nil {
			l.ID = existing.ID
			return nil
		}
	}
	c := *l
	r.rows[l.ID] = &c
	return nil
}

func (r *memWebhookLogRepo) GetByEventID(ctx context.Context, source, eventID string) (*domain.WebhookLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l := r.byEventID(source, eventID); l != nil {
		c := *l
		return &c, nil
	}
	return nil, nil
}

func (r *memWebhookLogRepo) MarkProcessed(ctx context.Context, source, eventID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l := r.byEventID(source, eventID); l != nil {
		l.Processed = true
		l.ProcessedAt = &at
	}
	return nil
}

func (r *memWebhookLogRepo) MarkProcessedByID(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.rows[id]; ok {
		l.Processed = true
		l.ProcessedAt = &at
	}
	return nil
}

func (r *memWebhookLogRepo) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.rows[id]; ok && !l.Processed {
		l.LastError = &lastError
	}
	return nil
}

func (r *memWebhookLogRepo) ListUnprocessed(ctx context.Context, createdBefore time.Time, limit int) ([]domain.WebhookLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.WebhookLog
	for _, l := range r.rows {
		if !l.Processed && !l.CreatedAt.After(createdBefore) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memWebhookLogRepo) all() []domain.WebhookLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.WebhookLog, 0, len(r.rows))
	for _, l := range r.rows {
		out = append(out, *l)
	}
	return out
}

// --- In-Memory Notification / Revenue Repos ---

type memNotificationRepo struct {
	mu   sync.Mutex
	rows []domain.Notification
}

func (r *memNotificationRepo) Create(ctx context.Context, tx pgx.Tx, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *n)
	id := n.ID
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i := range r.rows {
			if r.rows[i].ID == id {
				r.rows = append(r.rows[:i], r.rows[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r *memNotificationRepo) all() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.rows...)
}

type memRevenueRepo struct {
	mu   sync.Mutex
	rows []domain.RevenueEntry
	fail error
}

func (r *memRevenueRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.RevenueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.rows = append(r.rows, *entry)
	id := entry.ID
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i := range r.rows {
			if r.rows[i].ID == id {
				r.rows = append(r.rows[:i], r.rows[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r *memRevenueRepo) setFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

func (r *memRevenueRepo) all() []domain.RevenueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.RevenueEntry(nil), r.rows...)
}

// --- Recording Publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.EscrowEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.EscrowEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
