// Package channel holds one adapter per payment collection method. Adapters
// initiate attempts in their channel and normalize the channel's
// confirmation signal into a canonical event; all ledger writes go through
// the reconciliation engine.
package channel

import (
	"context"
	"fmt"

	"shop-payment-service/internal/domain"
	"shop-payment-service/internal/provider/daraja"
	"shop-payment-service/internal/usecase"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MobilePushAdapter collects payment by pushing an M-Pesa prompt to the
// customer's phone. Confirmation arrives later on the Daraja webhook.
type MobilePushAdapter struct {
	engine      *usecase.ReconcileUsecase
	daraja      *daraja.Client
	orders      domain.OrderService
	callbackURL string
	logger      *zap.Logger
}

func NewMobilePushAdapter(
	engine *usecase.ReconcileUsecase,
	client *daraja.Client,
	orders domain.OrderService,
	callbackURL string,
	logger *zap.Logger,
) *MobilePushAdapter {
	return &MobilePushAdapter{
		engine:      engine,
		daraja:      client,
		orders:      orders,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// Initiate pushes a payment prompt for the order's outstanding balance.
//
// The returned attempt is always a committed ledger row: pending with the
// provider's CheckoutRequestID when the push went out, or failed with the
// transport error as reason when it did not. Transport trouble is never
// surfaced as an error to the checkout flow.
func (a *MobilePushAdapter) Initiate(ctx context.Context, orderID int64, orderNumber, phoneNumber string) (*domain.PaymentAttempt, error) {
	pending, err := a.engine.HasPendingAttempt(ctx, orderID, domain.ChannelMobilePush)
	if err != nil {
		return nil, err
	}
	if pending {
		// Don't stack pushes on the customer while one prompt is still
		// outstanding.
		return nil, domain.ErrConflictingPendingAttempt
	}

	amount, err := a.orders.GetOutstandingBalance(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get outstanding balance: %w", err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAttemptState
	}

	req := domain.RecordAttemptRequest{
		OrderID:     orderID,
		Channel:     domain.ChannelMobilePush,
		Amount:      amount,
		PhoneNumber: phoneNumber,
	}

	resp, pushErr := a.daraja.InitiateSTKPush(ctx, phoneNumber, orderNumber, int(amount.IntPart()), a.callbackURL)
	if pushErr != nil {
		a.logger.Warn("STK push failed",
			zap.Int64("order_id", orderID),
			zap.Error(pushErr))
		// No provider correlation id exists; record the failure under a
		// generated reference so the row still carries its "why".
		req.ProviderRef = "push-" + ulid.Make().String()
		return a.engine.RecordFailedAttempt(ctx, req, pushErr.Error())
	}

	req.ProviderRef = resp.CheckoutRequestID
	attempt, err := a.engine.RecordAttempt(ctx, req)
	if err != nil {
		return nil, err
	}

	a.logger.Info("STK push initiated",
		zap.Int64("order_id", orderID),
		zap.String("checkout_request_id", resp.CheckoutRequestID),
		zap.String("customer_message", resp.CustomerMessage))
	return attempt, nil
}

// NormalizeCallback turns a parsed Daraja STK callback into the canonical
// confirmation keyed by the CheckoutRequestID embedded in the payload.
func (a *MobilePushAdapter) NormalizeCallback(result *daraja.CallbackResult) (string, domain.Confirmation) {
	conf := domain.Confirmation{
		Success:       result.Success,
		SettlementRef: result.ReceiptNumber,
		Reason:        result.ResultDescription,
		Amount:        decimal.NewFromFloat(result.Amount),
		Timestamp:     result.TransactionDate,
	}
	return result.CheckoutRequestID, conf
}

// ApplyCallback runs a raw Daraja callback payload through parsing,
// normalization and the engine.
func (a *MobilePushAdapter) ApplyCallback(ctx context.Context, payload []byte) error {
	result, err := daraja.ParseSTKCallback(payload)
	if err != nil {
		return err
	}
	ref, conf := a.NormalizeCallback(result)
	return a.engine.ApplyConfirmation(ctx, domain.ChannelMobilePush, ref, conf)
}
