package channel

import (
	"context"
	"fmt"
	"time"

	"shop-payment-service/internal/domain"
	"shop-payment-service/internal/usecase"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CODAdapter handles cash on delivery. Nothing is captured up front: the
// attempt opens pending with zero amount, the order is marked confirmed with
// a distinct cod_pending payment marker so fulfillment can proceed, and the
// real collected amount arrives later from delivery staff.
type CODAdapter struct {
	engine *usecase.ReconcileUsecase
	orders domain.OrderService
	logger *zap.Logger
}

func NewCODAdapter(engine *usecase.ReconcileUsecase, orders domain.OrderService, logger *zap.Logger) *CODAdapter {
	return &CODAdapter{engine: engine, orders: orders, logger: logger}
}

// Initiate opens the COD attempt and releases the order to fulfillment.
func (a *CODAdapter) Initiate(ctx context.Context, orderID int64) (*domain.PaymentAttempt, error) {
	ref := fmt.Sprintf("COD-%d-%d", orderID, time.Now().Unix())

	attempt, err := a.engine.RecordAttempt(ctx, domain.RecordAttemptRequest{
		OrderID:     orderID,
		Channel:     domain.ChannelCashOnDelivery,
		ProviderRef: ref,
		Amount:      decimal.Zero,
	})
	if err != nil {
		return nil, err
	}

	// The attempt row is the unit of record; order-side bookkeeping follows
	// it and its failure is an ops signal, not a rollback.
	if err := a.orders.SetPaymentStatus(ctx, orderID, domain.OrderPaymentCODPending); err != nil {
		a.logger.Error("failed to mark order cod_pending",
			zap.Int64("order_id", orderID),
			zap.Error(err))
	} else if err := a.orders.SetOrderStatus(ctx, orderID, domain.OrderStatusConfirmed); err != nil {
		a.logger.Error("failed to confirm order for COD fulfillment",
			zap.Int64("order_id", orderID),
			zap.Error(err))
	}

	a.logger.Info("COD attempt opened",
		zap.Int64("order_id", orderID),
		zap.String("provider_ref", ref))
	return attempt, nil
}

// ConfirmCollected applies the delivery staff's confirmation with the amount
// actually collected at the door. The engine moves the order to delivered.
func (a *CODAdapter) ConfirmCollected(ctx context.Context, providerRef string, collected decimal.Decimal) error {
	if collected.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("collected amount must be greater than 0")
	}

	return a.engine.ApplyConfirmation(ctx, domain.ChannelCashOnDelivery, providerRef, domain.Confirmation{
		Success:       true,
		SettlementRef: providerRef,
		Amount:        collected,
	})
}
