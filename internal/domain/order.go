package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type OrderPaymentStatus string
type OrderStatus string

const (
	OrderPaymentUnpaid     OrderPaymentStatus = "unpaid"
	OrderPaymentCODPending OrderPaymentStatus = "cod_pending"
	OrderPaymentPaid       OrderPaymentStatus = "paid"
)

const (
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
)

// OrderService is the contract with the order subsystem. Orders live in a
// different bounded context: updates here are at-least-once and deliberately
// outside the ledger transaction.
type OrderService interface {
	GetOutstandingBalance(ctx context.Context, orderID int64) (decimal.Decimal, error)
	SetPaymentStatus(ctx context.Context, orderID int64, status OrderPaymentStatus) error
	SetOrderStatus(ctx context.Context, orderID int64, status OrderStatus) error
}
