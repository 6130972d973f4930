package channel

import (
	"context"
	"fmt"

	"shop-payment-service/config"
	"shop-payment-service/internal/domain"
	"shop-payment-service/internal/usecase"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BankInstructions is what the customer sees after choosing a bank
// transfer: the shop's static account details plus the reference to quote.
type BankInstructions struct {
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	Branch        string `json:"branch"`
	SwiftCode     string `json:"swift_code,omitempty"`
	Reference     string `json:"reference"`
}

// BankTransferAdapter records transfers to the shop's bank account. The
// transfer reference generated at initiation is the correlation id; the bank
// statement reference an operator later verifies is stored as the
// settlement reference.
type BankTransferAdapter struct {
	engine *usecase.ReconcileUsecase
	orders domain.OrderService
	bank   config.BankConfig
	logger *zap.Logger
}

func NewBankTransferAdapter(engine *usecase.ReconcileUsecase, orders domain.OrderService, bank config.BankConfig, logger *zap.Logger) *BankTransferAdapter {
	return &BankTransferAdapter{engine: engine, orders: orders, bank: bank, logger: logger}
}

// Initiate opens a pending attempt for the order's outstanding balance and
// returns the account details to display.
func (a *BankTransferAdapter) Initiate(ctx context.Context, orderID int64) (*domain.PaymentAttempt, *BankInstructions, error) {
	amount, err := a.orders.GetOutstandingBalance(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get outstanding balance: %w", err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, domain.ErrInvalidAttemptState
	}

	ref := "BT-" + ulid.Make().String()
	attempt, err := a.engine.RecordAttempt(ctx, domain.RecordAttemptRequest{
		OrderID:     orderID,
		Channel:     domain.ChannelBankTransfer,
		ProviderRef: ref,
		Amount:      amount,
	})
	if err != nil {
		return nil, nil, err
	}

	a.logger.Info("bank transfer attempt opened",
		zap.Int64("order_id", orderID),
		zap.String("provider_ref", ref),
		zap.String("amount", amount.String()))

	return attempt, &BankInstructions{
		BankName:      a.bank.BankName,
		AccountName:   a.bank.AccountName,
		AccountNumber: a.bank.AccountNumber,
		Branch:        a.bank.Branch,
		SwiftCode:     a.bank.SwiftCode,
		Reference:     ref,
	}, nil
}

// ConfirmTransfer records the operator-verified bank reference against the
// attempt, same pattern as the manual paybill confirmation.
func (a *BankTransferAdapter) ConfirmTransfer(ctx context.Context, providerRef, bankReference string) error {
	if bankReference == "" {
		return fmt.Errorf("bank reference is required")
	}

	return a.engine.ApplyConfirmation(ctx, domain.ChannelBankTransfer, providerRef, domain.Confirmation{
		Success:       true,
		SettlementRef: bankReference,
	})
}
