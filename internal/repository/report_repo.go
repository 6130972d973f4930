package repository

import (
	"context"
	"time"

	"shop-payment-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository is read-only aggregation over the ledger. It must never
// appear on the reconciliation write path.
type ReportRepository interface {
	TotalsByStatus(ctx context.Context, from, to time.Time) ([]domain.StatusTotal, error)
	TotalsByChannel(ctx context.Context, from, to time.Time) ([]domain.ChannelTotal, error)
	DailyTotals(ctx context.Context, from, to time.Time) ([]domain.DayTotal, error)
}

type reportRepo struct {
	db *pgxpool.Pool
}

func NewReportRepository(db *pgxpool.Pool) ReportRepository {
	return &reportRepo{db: db}
}

func (r *reportRepo) TotalsByStatus(ctx context.Context, from, to time.Time) ([]domain.StatusTotal, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(amount), 0)
		FROM payment_attempts
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY status
		ORDER BY status
	`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.StatusTotal
	for rows.Next() {
		var t domain.StatusTotal
		if err := rows.Scan(&t.Status, &t.Count, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (r *reportRepo) TotalsByChannel(ctx context.Context, from, to time.Time) ([]domain.ChannelTotal, error) {
	query := `
		SELECT channel, COUNT(*), COALESCE(SUM(amount), 0)
		FROM payment_attempts
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY channel
		ORDER BY channel
	`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.ChannelTotal
	for rows.Next() {
		var t domain.ChannelTotal
		if err := rows.Scan(&t.Channel, &t.Count, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (r *reportRepo) DailyTotals(ctx context.Context, from, to time.Time) ([]domain.DayTotal, error) {
	// Completed attempts only: the daily trend shows money actually
	// collected, not tries.
	query := `
		SELECT date_trunc('day', settled_at), COUNT(*), COALESCE(SUM(amount), 0)
		FROM payment_attempts
		WHERE status = 'completed' AND settled_at >= $1 AND settled_at < $2
		GROUP BY date_trunc('day', settled_at)
		ORDER BY date_trunc('day', settled_at)
	`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.DayTotal
	for rows.Next() {
		var t domain.DayTotal
		if err := rows.Scan(&t.Day, &t.Count, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
