package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentChannel string
type AttemptStatus string

const (
	ChannelMobilePush     PaymentChannel = "mobile_push"
	ChannelPaybillManual  PaymentChannel = "paybill_manual"
	ChannelCashOnDelivery PaymentChannel = "cash_on_delivery"
	ChannelBankTransfer   PaymentChannel = "bank_transfer"
)

const (
	AttemptStatusPending   AttemptStatus = "pending"
	AttemptStatusCompleted AttemptStatus = "completed"
	AttemptStatusFailed    AttemptStatus = "failed"
)

// Terminal reports whether no further transition may leave the status.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptStatusCompleted || s == AttemptStatusFailed
}

func (c PaymentChannel) Valid() bool {
	switch c {
	case ChannelMobilePush, ChannelPaybillManual, ChannelCashOnDelivery, ChannelBankTransfer:
		return true
	}
	return false
}

// PaymentAttempt is one row of the payment ledger: a single try at collecting
// money for an order through one channel. Rows are never deleted; terminal
// rows are never resurrected.
type PaymentAttempt struct {
	ID            string          `json:"id" db:"id"`
	OrderID       int64           `json:"order_id" db:"order_id"`
	Channel       PaymentChannel  `json:"channel" db:"channel"`
	ProviderRef   string          `json:"provider_ref" db:"provider_ref"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	PhoneNumber   *string         `json:"phone_number,omitempty" db:"phone_number"`
	Status        AttemptStatus   `json:"status" db:"status"`
	FailureReason *string         `json:"failure_reason,omitempty" db:"failure_reason"`
	SettlementRef *string         `json:"settlement_ref,omitempty" db:"settlement_ref"`
	SettledAt     *time.Time      `json:"settled_at,omitempty" db:"settled_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// Confirmation is the channel-agnostic confirmation event an adapter distills
// from its channel's raw signal (Daraja callback, operator entry, delivery
// staff call).
type Confirmation struct {
	Success       bool
	SettlementRef string
	Reason        string
	// Amount is the collected amount where the channel only learns it at
	// confirmation time (cash on delivery). Zero means "keep the initiated
	// amount".
	Amount    decimal.Decimal
	Timestamp time.Time
}

// RecordAttemptRequest is the engine's input for a new ledger row.
type RecordAttemptRequest struct {
	OrderID     int64
	Channel     PaymentChannel
	ProviderRef string
	Amount      decimal.Decimal
	PhoneNumber string
}

func (r *RecordAttemptRequest) Validate() error {
	if r.OrderID <= 0 {
		return errors.New("order_id is required")
	}
	if !r.Channel.Valid() {
		return errors.New("unknown payment channel")
	}
	if r.ProviderRef == "" {
		return errors.New("provider reference is required")
	}
	// COD captures nothing up front, every other channel must carry the
	// order's outstanding balance.
	if r.Channel != ChannelCashOnDelivery && r.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("amount must be greater than 0")
	}
	if r.Amount.IsNegative() {
		return errors.New("amount must not be negative")
	}
	if r.Channel == ChannelMobilePush && r.PhoneNumber == "" {
		return errors.New("phone_number is required for mobile push")
	}
	return nil
}
