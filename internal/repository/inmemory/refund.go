package inmemory

import (
	"context"
	"sort"
	"time"

	"shop-payment-service/internal/domain"

	"github.com/shopspring/decimal"
)

func (l *Ledger) CreateRefund(_ context.Context, refund *domain.RefundRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	attempt, ok := l.attempts[refund.AttemptID]
	if !ok {
		return domain.ErrUnknownAttempt
	}
	if attempt.Status != domain.AttemptStatusCompleted {
		return domain.ErrInvalidAttemptState
	}

	refunded := decimal.Zero
	for _, r := range l.refunds {
		if r.AttemptID == refund.AttemptID && r.Status != domain.RefundStatusRejected {
			refunded = refunded.Add(r.Amount)
		}
	}
	if refunded.Add(refund.Amount).GreaterThan(attempt.Amount) {
		return domain.ErrOverRefund
	}

	refund.OrderID = attempt.OrderID
	refund.Status = domain.RefundStatusPending
	if refund.CreatedAt.IsZero() {
		refund.CreatedAt = time.Now().UTC()
	}
	stored := *refund
	l.refunds[refund.ID] = &stored
	return nil
}

func (l *Ledger) GetRefund(_ context.Context, id string) (*domain.RefundRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	refund, ok := l.refunds[id]
	if !ok {
		return nil, domain.ErrRefundNotFound
	}
	c := *refund
	return &c, nil
}

func (l *Ledger) TransitionRefund(_ context.Context, id string, from, to domain.RefundStatus) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	refund, ok := l.refunds[id]
	if !ok || refund.Status != from {
		return false, nil
	}
	refund.Status = to
	return true, nil
}

func (l *Ledger) ListRefundsByAttempt(_ context.Context, attemptID string) ([]*domain.RefundRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var refunds []*domain.RefundRecord
	for _, r := range l.refunds {
		if r.AttemptID == attemptID {
			c := *r
			refunds = append(refunds, &c)
		}
	}
	sort.Slice(refunds, func(i, j int) bool { return refunds[i].CreatedAt.Before(refunds[j].CreatedAt) })
	return refunds, nil
}
