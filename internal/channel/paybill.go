package channel

import (
	"context"

	"shop-payment-service/internal/domain"
	"shop-payment-service/internal/usecase"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaybillAdapter covers payments customers key into the paybill themselves.
// There is no outbound call and no async round-trip: a staff member asserts
// the money is visible in the paybill account and records it, so recording
// and confirming are one combined operation. Both still go through the
// engine so the audit trail reads the same as every other channel.
type PaybillAdapter struct {
	engine *usecase.ReconcileUsecase
	logger *zap.Logger
}

func NewPaybillAdapter(engine *usecase.ReconcileUsecase, logger *zap.Logger) *PaybillAdapter {
	return &PaybillAdapter{engine: engine, logger: logger}
}

// RecordConfirmed records an operator-verified paybill payment. The M-Pesa
// transaction code the operator keys in is the correlation id, which is what
// makes re-entering the same code a DuplicateAttempt instead of a second
// credit.
func (a *PaybillAdapter) RecordConfirmed(ctx context.Context, orderID int64, transactionCode string, amount decimal.Decimal, phoneNumber string) (*domain.PaymentAttempt, error) {
	_, err := a.engine.RecordAttempt(ctx, domain.RecordAttemptRequest{
		OrderID:     orderID,
		Channel:     domain.ChannelPaybillManual,
		ProviderRef: transactionCode,
		Amount:      amount,
		PhoneNumber: phoneNumber,
	})
	if err != nil {
		return nil, err
	}

	err = a.engine.ApplyConfirmation(ctx, domain.ChannelPaybillManual, transactionCode, domain.Confirmation{
		Success:       true,
		SettlementRef: transactionCode,
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("manual paybill payment recorded",
		zap.Int64("order_id", orderID),
		zap.String("transaction_code", transactionCode),
		zap.String("amount", amount.String()))

	return a.engine.AttemptByRef(ctx, domain.ChannelPaybillManual, transactionCode)
}
