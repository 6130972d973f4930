package channel

import (
	"context"
	"strings"
	"testing"

	"shop-payment-service/config"
	"shop-payment-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testBank = config.BankConfig{
	BankName:      "Equity Bank",
	AccountName:   "Duka Traders Ltd",
	AccountNumber: "0123456789",
	Branch:        "Moi Avenue",
	SwiftCode:     "EQBLKENA",
}

func TestBankTransferInitiate(t *testing.T) {
	orders := newFakeOrders(decimal.NewFromInt(5000))
	engine, _ := newEngine(t, orders)
	adapter := NewBankTransferAdapter(engine, orders, testBank, zap.NewNop())

	attempt, instructions, err := adapter.Initiate(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, domain.AttemptStatusPending, attempt.Status)
	require.True(t, attempt.Amount.Equal(decimal.NewFromInt(5000)))
	require.True(t, strings.HasPrefix(attempt.ProviderRef, "BT-"))

	require.Equal(t, testBank.BankName, instructions.BankName)
	require.Equal(t, testBank.AccountNumber, instructions.AccountNumber)
	require.Equal(t, attempt.ProviderRef, instructions.Reference)
}

func TestBankTransferConfirm(t *testing.T) {
	orders := newFakeOrders(decimal.NewFromInt(5000))
	engine, ledger := newEngine(t, orders)
	adapter := NewBankTransferAdapter(engine, orders, testBank, zap.NewNop())
	ctx := context.Background()

	attempt, _, err := adapter.Initiate(ctx, 42)
	require.NoError(t, err)

	err = adapter.ConfirmTransfer(ctx, attempt.ProviderRef, "FT26081412345")
	require.NoError(t, err)

	stored, err := ledger.GetAttemptByID(ctx, attempt.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AttemptStatusCompleted, stored.Status)
	require.Equal(t, "FT26081412345", *stored.SettlementRef)

	require.Equal(t, domain.OrderPaymentPaid, orders.paymentUpdates[42])
	require.Equal(t, domain.OrderStatusConfirmed, orders.statusUpdates[42])
}

func TestBankTransferConfirmRequiresReference(t *testing.T) {
	orders := newFakeOrders(decimal.NewFromInt(5000))
	engine, _ := newEngine(t, orders)
	adapter := NewBankTransferAdapter(engine, orders, testBank, zap.NewNop())
	ctx := context.Background()

	attempt, _, err := adapter.Initiate(ctx, 42)
	require.NoError(t, err)

	require.Error(t, adapter.ConfirmTransfer(ctx, attempt.ProviderRef, ""))
}

func TestBankTransferConfirmUnknownRef(t *testing.T) {
	orders := newFakeOrders(decimal.NewFromInt(5000))
	engine, _ := newEngine(t, orders)
	adapter := NewBankTransferAdapter(engine, orders, testBank, zap.NewNop())

	err := adapter.ConfirmTransfer(context.Background(), "BT-UNKNOWN", "FT26081412345")
	require.ErrorIs(t, err, domain.ErrUnknownAttempt)
}

func TestBankTransferInitiateZeroBalance(t *testing.T) {
	orders := newFakeOrders(decimal.Zero)
	engine, ledger := newEngine(t, orders)
	adapter := NewBankTransferAdapter(engine, orders, testBank, zap.NewNop())

	_, _, err := adapter.Initiate(context.Background(), 42)
	require.ErrorIs(t, err, domain.ErrInvalidAttemptState)
	require.Equal(t, 0, ledger.AttemptCount())
}
