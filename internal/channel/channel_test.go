package channel

import (
	"context"
	"testing"

	"shop-payment-service/internal/domain"
	"shop-payment-service/internal/repository/inmemory"
	"shop-payment-service/internal/usecase"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeOrders struct {
	balance        decimal.Decimal
	balanceErr     error
	paymentUpdates map[int64]domain.OrderPaymentStatus
	statusUpdates  map[int64]domain.OrderStatus
}

func newFakeOrders(balance decimal.Decimal) *fakeOrders {
	return &fakeOrders{
		balance:        balance,
		paymentUpdates: make(map[int64]domain.OrderPaymentStatus),
		statusUpdates:  make(map[int64]domain.OrderStatus),
	}
}

func (f *fakeOrders) GetOutstandingBalance(_ context.Context, _ int64) (decimal.Decimal, error) {
	if f.balanceErr != nil {
		return decimal.Zero, f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeOrders) SetPaymentStatus(_ context.Context, orderID int64, status domain.OrderPaymentStatus) error {
	f.paymentUpdates[orderID] = status
	return nil
}

func (f *fakeOrders) SetOrderStatus(_ context.Context, orderID int64, status domain.OrderStatus) error {
	f.statusUpdates[orderID] = status
	return nil
}

func newEngine(t *testing.T, orders domain.OrderService) (*usecase.ReconcileUsecase, *inmemory.Ledger) {
	t.Helper()
	ledger := inmemory.NewLedger()
	return usecase.NewReconcileUsecase(ledger, orders, zap.NewNop()), ledger
}
