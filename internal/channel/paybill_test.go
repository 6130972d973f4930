package channel

import (
	"context"
	"testing"

	"shop-payment-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPaybillRecordConfirmed(t *testing.T) {
	orders := newFakeOrders(decimal.Zero)
	engine, _ := newEngine(t, orders)
	adapter := NewPaybillAdapter(engine, zap.NewNop())

	attempt, err := adapter.RecordConfirmed(context.Background(), 42, "QWE123XYZ", decimal.NewFromInt(1500), "254712345678")
	require.NoError(t, err)
	require.Equal(t, domain.AttemptStatusCompleted, attempt.Status)
	require.Equal(t, "QWE123XYZ", attempt.ProviderRef)
	require.Equal(t, "QWE123XYZ", *attempt.SettlementRef)
	require.True(t, attempt.Amount.Equal(decimal.NewFromInt(1500)))

	require.Equal(t, domain.OrderPaymentPaid, orders.paymentUpdates[42])
	require.Equal(t, domain.OrderStatusConfirmed, orders.statusUpdates[42])
}

func TestPaybillRecordConfirmedDuplicateCode(t *testing.T) {
	orders := newFakeOrders(decimal.Zero)
	engine, ledger := newEngine(t, orders)
	adapter := NewPaybillAdapter(engine, zap.NewNop())
	ctx := context.Background()

	_, err := adapter.RecordConfirmed(ctx, 42, "QWE123XYZ", decimal.NewFromInt(1500), "254712345678")
	require.NoError(t, err)

	// The same transaction code keyed in again is caught, even against a
	// different order.
	_, err = adapter.RecordConfirmed(ctx, 43, "QWE123XYZ", decimal.NewFromInt(1500), "254712345678")
	require.ErrorIs(t, err, domain.ErrDuplicateAttempt)
	require.Equal(t, 1, ledger.AttemptCount())
}

func TestPaybillRecordConfirmedValidation(t *testing.T) {
	orders := newFakeOrders(decimal.Zero)
	engine, ledger := newEngine(t, orders)
	adapter := NewPaybillAdapter(engine, zap.NewNop())
	ctx := context.Background()

	_, err := adapter.RecordConfirmed(ctx, 42, "", decimal.NewFromInt(1500), "")
	require.Error(t, err)

	_, err = adapter.RecordConfirmed(ctx, 42, "QWE123XYZ", decimal.Zero, "")
	require.Error(t, err)

	require.Equal(t, 0, ledger.AttemptCount())
}
