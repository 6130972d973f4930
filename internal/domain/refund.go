package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type RefundStatus string

const (
	RefundStatusPending  RefundStatus = "pending"
	RefundStatusApproved RefundStatus = "approved"
	RefundStatusRejected RefundStatus = "rejected"
	RefundStatusSettled  RefundStatus = "settled"
)

// RefundRecord is bookkeeping only: money movement for refunds happens
// outside the system. A refund references a completed attempt and never
// mutates it.
type RefundRecord struct {
	ID        string          `json:"id" db:"id"`
	AttemptID string          `json:"attempt_id" db:"attempt_id"`
	OrderID   int64           `json:"order_id" db:"order_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Reason    string          `json:"reason" db:"reason"`
	Status    RefundStatus    `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// refundTransitions is the monotonic progression the coordinator enforces:
// pending -> approved -> settled, or pending -> rejected.
var refundTransitions = map[RefundStatus]RefundStatus{
	RefundStatusApproved: RefundStatusPending,
	RefundStatusRejected: RefundStatusPending,
	RefundStatusSettled:  RefundStatusApproved,
}

// RefundTransitionFrom returns the status a refund must currently hold for
// the target status to be a legal transition.
func RefundTransitionFrom(target RefundStatus) (RefundStatus, bool) {
	from, ok := refundTransitions[target]
	return from, ok
}

type RefundRequest struct {
	AttemptID string
	Amount    decimal.Decimal
	Reason    string
}

func (r *RefundRequest) Validate() error {
	if r.AttemptID == "" {
		return errors.New("attempt_id is required")
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("amount must be greater than 0")
	}
	if r.Reason == "" {
		return errors.New("reason is required")
	}
	return nil
}
