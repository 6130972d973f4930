package usecase

import (
	"context"

	"shop-payment-service/internal/domain"
	"shop-payment-service/internal/repository"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// RefundUsecase keeps the refund books. It never moves money and never
// mutates the attempt a refund points at.
type RefundUsecase struct {
	refunds repository.RefundRepository
	logger  *zap.Logger
}

func NewRefundUsecase(refunds repository.RefundRepository, logger *zap.Logger) *RefundUsecase {
	return &RefundUsecase{refunds: refunds, logger: logger}
}

// RequestRefund opens a pending refund against a completed attempt. The
// store enforces, atomically, that the attempt is completed and that the
// cumulative non-rejected refund amount stays within what was collected.
func (uc *RefundUsecase) RequestRefund(ctx context.Context, req domain.RefundRequest) (*domain.RefundRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	refund := &domain.RefundRecord{
		ID:        ulid.Make().String(),
		AttemptID: req.AttemptID,
		Amount:    req.Amount,
		Reason:    req.Reason,
	}

	if err := uc.refunds.CreateRefund(ctx, refund); err != nil {
		return nil, err
	}

	uc.logger.Info("refund requested",
		zap.String("refund_id", refund.ID),
		zap.String("attempt_id", refund.AttemptID),
		zap.Int64("order_id", refund.OrderID),
		zap.String("amount", refund.Amount.String()))

	return refund, nil
}

func (uc *RefundUsecase) Approve(ctx context.Context, refundID string) error {
	return uc.transition(ctx, refundID, domain.RefundStatusApproved)
}

func (uc *RefundUsecase) Reject(ctx context.Context, refundID string) error {
	return uc.transition(ctx, refundID, domain.RefundStatusRejected)
}

func (uc *RefundUsecase) Settle(ctx context.Context, refundID string) error {
	return uc.transition(ctx, refundID, domain.RefundStatusSettled)
}

func (uc *RefundUsecase) Get(ctx context.Context, refundID string) (*domain.RefundRecord, error) {
	return uc.refunds.GetRefund(ctx, refundID)
}

func (uc *RefundUsecase) ListForAttempt(ctx context.Context, attemptID string) ([]*domain.RefundRecord, error) {
	return uc.refunds.ListRefundsByAttempt(ctx, attemptID)
}

func (uc *RefundUsecase) transition(ctx context.Context, refundID string, target domain.RefundStatus) error {
	from, ok := domain.RefundTransitionFrom(target)
	if !ok {
		return domain.ErrInvalidRefundTransition
	}

	moved, err := uc.refunds.TransitionRefund(ctx, refundID, from, target)
	if err != nil {
		return err
	}
	if !moved {
		// Either the refund does not exist or it is not in the required
		// state; tell the operator which.
		if _, err := uc.refunds.GetRefund(ctx, refundID); err != nil {
			return err
		}
		return domain.ErrInvalidRefundTransition
	}

	uc.logger.Info("refund status changed",
		zap.String("refund_id", refundID),
		zap.String("status", string(target)))
	return nil
}
