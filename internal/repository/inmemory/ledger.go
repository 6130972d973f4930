// Package inmemory backs the ledger interfaces with plain maps. It mirrors
// the Postgres constraints (unique channel+ref, one pending per
// order+channel, row-locked refund sums) so usecases can be exercised
// without a database.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"shop-payment-service/internal/domain"

	"github.com/shopspring/decimal"
)

type Ledger struct {
	mu       sync.RWMutex
	attempts map[string]*domain.PaymentAttempt // by id
	byRef    map[string]string                 // channel|provider_ref -> id
	refunds  map[string]*domain.RefundRecord   // by id
}

func NewLedger() *Ledger {
	return &Ledger{
		attempts: make(map[string]*domain.PaymentAttempt),
		byRef:    make(map[string]string),
		refunds:  make(map[string]*domain.RefundRecord),
	}
}

func refKey(channel domain.PaymentChannel, providerRef string) string {
	return string(channel) + "|" + providerRef
}

func (l *Ledger) InsertAttempt(_ context.Context, attempt *domain.PaymentAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byRef[refKey(attempt.Channel, attempt.ProviderRef)]; exists {
		return domain.ErrDuplicateAttempt
	}
	if attempt.Status == domain.AttemptStatusPending {
		for _, a := range l.attempts {
			if a.OrderID == attempt.OrderID && a.Channel == attempt.Channel && a.Status == domain.AttemptStatusPending {
				return domain.ErrConflictingPendingAttempt
			}
		}
	}

	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	stored := *attempt
	l.attempts[attempt.ID] = &stored
	l.byRef[refKey(attempt.Channel, attempt.ProviderRef)] = attempt.ID
	return nil
}

func (l *Ledger) GetAttempt(_ context.Context, channel domain.PaymentChannel, providerRef string) (*domain.PaymentAttempt, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.byRef[refKey(channel, providerRef)]
	if !ok {
		return nil, domain.ErrUnknownAttempt
	}
	c := *l.attempts[id]
	return &c, nil
}

func (l *Ledger) GetAttemptByID(_ context.Context, id string) (*domain.PaymentAttempt, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	attempt, ok := l.attempts[id]
	if !ok {
		return nil, domain.ErrUnknownAttempt
	}
	c := *attempt
	return &c, nil
}

func (l *Ledger) HasPendingAttempt(_ context.Context, orderID int64, channel domain.PaymentChannel) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, a := range l.attempts {
		if a.OrderID == orderID && a.Channel == channel && a.Status == domain.AttemptStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (l *Ledger) CompleteAttempt(_ context.Context, id, settlementRef string, settledAt time.Time, collectedAmount *decimal.Decimal) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	attempt, ok := l.attempts[id]
	if !ok || attempt.Status != domain.AttemptStatusPending {
		return false, nil
	}

	attempt.Status = domain.AttemptStatusCompleted
	attempt.SettlementRef = &settlementRef
	t := settledAt
	attempt.SettledAt = &t
	if collectedAmount != nil {
		attempt.Amount = *collectedAmount
	}
	return true, nil
}

func (l *Ledger) FailAttempt(_ context.Context, id, reason string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	attempt, ok := l.attempts[id]
	if !ok || attempt.Status != domain.AttemptStatusPending {
		return false, nil
	}

	attempt.Status = domain.AttemptStatusFailed
	attempt.FailureReason = &reason
	return true, nil
}

func (l *Ledger) ListAttemptsByOrder(_ context.Context, orderID int64) ([]*domain.PaymentAttempt, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var attempts []*domain.PaymentAttempt
	for _, a := range l.attempts {
		if a.OrderID == orderID {
			c := *a
			attempts = append(attempts, &c)
		}
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].CreatedAt.Before(attempts[j].CreatedAt) })
	return attempts, nil
}

func (l *Ledger) ListStalePending(_ context.Context, olderThan time.Time) ([]*domain.PaymentAttempt, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var attempts []*domain.PaymentAttempt
	for _, a := range l.attempts {
		if a.Status == domain.AttemptStatusPending && a.CreatedAt.Before(olderThan) {
			c := *a
			attempts = append(attempts, &c)
		}
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].CreatedAt.Before(attempts[j].CreatedAt) })
	return attempts, nil
}

// AttemptCount reports the total number of ledger rows, used by tests to
// assert that rejected operations left no trace.
func (l *Ledger) AttemptCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.attempts)
}
