package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reporting aggregates are read-only projections over the ledger for the
// admin dashboard. Nothing here can mutate attempt or refund rows.

type StatusTotal struct {
	Status AttemptStatus   `json:"status"`
	Count  int64           `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

type ChannelTotal struct {
	Channel PaymentChannel  `json:"channel"`
	Count   int64           `json:"count"`
	Total   decimal.Decimal `json:"total"`
}

type DayTotal struct {
	Day   time.Time       `json:"day"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type ReportSummary struct {
	From      time.Time      `json:"from"`
	To        time.Time      `json:"to"`
	ByStatus  []StatusTotal  `json:"by_status"`
	ByChannel []ChannelTotal `json:"by_channel"`
	ByDay     []DayTotal     `json:"by_day"`
}
