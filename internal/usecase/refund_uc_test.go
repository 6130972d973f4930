package usecase

import (
	"context"
	"testing"

	"shop-payment-service/internal/domain"
	"shop-payment-service/internal/repository/inmemory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// completedAttempt seeds a settled paybill attempt refunds can reference.
func completedAttempt(t *testing.T, ledger *inmemory.Ledger, engine *ReconcileUsecase, amount int64) *domain.PaymentAttempt {
	t.Helper()
	ctx := context.Background()

	attempt, err := engine.RecordAttempt(ctx, domain.RecordAttemptRequest{
		OrderID:     42,
		Channel:     domain.ChannelPaybillManual,
		ProviderRef: "QWE123",
		Amount:      decimal.NewFromInt(amount),
	})
	require.NoError(t, err)
	require.NoError(t, engine.ApplyConfirmation(ctx, domain.ChannelPaybillManual, "QWE123", domain.Confirmation{
		Success:       true,
		SettlementRef: "QWE123",
	}))

	stored, err := ledger.GetAttemptByID(ctx, attempt.ID)
	require.NoError(t, err)
	return stored
}

func newRefundFixture(t *testing.T) (*RefundUsecase, *inmemory.Ledger, *domain.PaymentAttempt) {
	t.Helper()
	ledger := inmemory.NewLedger()
	engine := NewReconcileUsecase(ledger, newFakeOrderService(decimal.Zero), zap.NewNop())
	attempt := completedAttempt(t, ledger, engine, 1500)
	return NewRefundUsecase(ledger, zap.NewNop()), ledger, attempt
}

func TestRequestRefund(t *testing.T) {
	uc, _, attempt := newRefundFixture(t)
	ctx := context.Background()

	refund, err := uc.RequestRefund(ctx, domain.RefundRequest{
		AttemptID: attempt.ID,
		Amount:    decimal.NewFromInt(500),
		Reason:    "damaged item",
	})
	require.NoError(t, err)
	require.Equal(t, domain.RefundStatusPending, refund.Status)
	require.Equal(t, attempt.OrderID, refund.OrderID)
	require.NotEmpty(t, refund.ID)
}

func TestRequestRefundAgainstPendingAttempt(t *testing.T) {
	ledger := inmemory.NewLedger()
	engine := NewReconcileUsecase(ledger, newFakeOrderService(decimal.Zero), zap.NewNop())
	ctx := context.Background()

	pending, err := engine.RecordAttempt(ctx, domain.RecordAttemptRequest{
		OrderID:     42,
		Channel:     domain.ChannelBankTransfer,
		ProviderRef: "BT-001",
		Amount:      decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	uc := NewRefundUsecase(ledger, zap.NewNop())
	_, err = uc.RequestRefund(ctx, domain.RefundRequest{
		AttemptID: pending.ID,
		Amount:    decimal.NewFromInt(100),
		Reason:    "changed mind",
	})
	require.ErrorIs(t, err, domain.ErrInvalidAttemptState)
}

func TestRequestRefundCumulativeOverRefund(t *testing.T) {
	uc, _, attempt := newRefundFixture(t)
	ctx := context.Background()

	_, err := uc.RequestRefund(ctx, domain.RefundRequest{
		AttemptID: attempt.ID, Amount: decimal.NewFromInt(1000), Reason: "partial return",
	})
	require.NoError(t, err)

	// 1000 + 600 exceeds the 1500 collected.
	_, err = uc.RequestRefund(ctx, domain.RefundRequest{
		AttemptID: attempt.ID, Amount: decimal.NewFromInt(600), Reason: "second return",
	})
	require.ErrorIs(t, err, domain.ErrOverRefund)

	// Up to the remainder is fine.
	_, err = uc.RequestRefund(ctx, domain.RefundRequest{
		AttemptID: attempt.ID, Amount: decimal.NewFromInt(500), Reason: "second return",
	})
	require.NoError(t, err)
}

func TestRejectedRefundFreesHeadroom(t *testing.T) {
	uc, _, attempt := newRefundFixture(t)
	ctx := context.Background()

	first, err := uc.RequestRefund(ctx, domain.RefundRequest{
		AttemptID: attempt.ID, Amount: decimal.NewFromInt(1500), Reason: "full return",
	})
	require.NoError(t, err)

	_, err = uc.RequestRefund(ctx, domain.RefundRequest{
		AttemptID: attempt.ID, Amount: decimal.NewFromInt(100), Reason: "extra",
	})
	require.ErrorIs(t, err, domain.ErrOverRefund)

	require.NoError(t, uc.Reject(ctx, first.ID))

	// The rejected amount no longer counts against the attempt.
	_, err = uc.RequestRefund(ctx, domain.RefundRequest{
		AttemptID: attempt.ID, Amount: decimal.NewFromInt(100), Reason: "extra",
	})
	require.NoError(t, err)
}

func TestRefundTransitions(t *testing.T) {
	uc, _, attempt := newRefundFixture(t)
	ctx := context.Background()

	refund, err := uc.RequestRefund(ctx, domain.RefundRequest{
		AttemptID: attempt.ID, Amount: decimal.NewFromInt(500), Reason: "damaged item",
	})
	require.NoError(t, err)

	// Settle straight from pending is illegal.
	require.ErrorIs(t, uc.Settle(ctx, refund.ID), domain.ErrInvalidRefundTransition)

	require.NoError(t, uc.Approve(ctx, refund.ID))
	stored, err := uc.Get(ctx, refund.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RefundStatusApproved, stored.Status)

	// Approved can no longer be rejected or re-approved.
	require.ErrorIs(t, uc.Reject(ctx, refund.ID), domain.ErrInvalidRefundTransition)
	require.ErrorIs(t, uc.Approve(ctx, refund.ID), domain.ErrInvalidRefundTransition)

	require.NoError(t, uc.Settle(ctx, refund.ID))
	stored, err = uc.Get(ctx, refund.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RefundStatusSettled, stored.Status)

	// Settled is terminal.
	require.ErrorIs(t, uc.Settle(ctx, refund.ID), domain.ErrInvalidRefundTransition)
}

func TestRefundTransitionUnknownID(t *testing.T) {
	uc, _, _ := newRefundFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, uc.Approve(ctx, "no-such-refund"), domain.ErrRefundNotFound)
	_, err := uc.Get(ctx, "no-such-refund")
	require.ErrorIs(t, err, domain.ErrRefundNotFound)
}

func TestListRefundsForAttempt(t *testing.T) {
	uc, _, attempt := newRefundFixture(t)
	ctx := context.Background()

	for _, amount := range []int64{300, 200} {
		_, err := uc.RequestRefund(ctx, domain.RefundRequest{
			AttemptID: attempt.ID, Amount: decimal.NewFromInt(amount), Reason: "partial return",
		})
		require.NoError(t, err)
	}

	refunds, err := uc.ListForAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	require.Len(t, refunds, 2)
}

func TestRefundRequestValidation(t *testing.T) {
	uc, _, attempt := newRefundFixture(t)
	ctx := context.Background()

	cases := []domain.RefundRequest{
		{AttemptID: "", Amount: decimal.NewFromInt(100), Reason: "x"},
		{AttemptID: attempt.ID, Amount: decimal.Zero, Reason: "x"},
		{AttemptID: attempt.ID, Amount: decimal.NewFromInt(100), Reason: ""},
	}
	for _, req := range cases {
		_, err := uc.RequestRefund(ctx, req)
		require.Error(t, err)
	}
}
