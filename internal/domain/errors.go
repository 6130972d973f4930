package domain

import "errors"

// Invariant violations are returned to callers and must leave the ledger
// untouched. Transport failures never surface as errors from an adapter:
// they are captured as the attempt's terminal failed state.
var (
	ErrDuplicateAttempt          = errors.New("payment attempt already recorded for this channel and reference")
	ErrConflictingPendingAttempt = errors.New("a pending payment attempt already exists for this order and channel")
	ErrUnknownAttempt            = errors.New("no payment attempt matches this channel and reference")
	ErrInvalidAttemptState       = errors.New("payment attempt is not in a state that allows this operation")
	ErrOverRefund                = errors.New("refund amount would exceed the amount collected by the attempt")
	ErrInvalidRefundTransition   = errors.New("refund status transition is not allowed")
	ErrRefundNotFound            = errors.New("refund record not found")
)
