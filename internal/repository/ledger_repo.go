package repository

import (
	"context"
	"errors"
	"time"

	"shop-payment-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Constraint names from migrations/001_payment_ledger.sql. The insert path
// uses them to tell a duplicated correlation id apart from a stacked pending
// attempt, both of which surface as unique violations.
const (
	constraintOnePending = "payment_attempts_one_pending_per_order_channel"
	pgUniqueViolation    = "23505"
)

type LedgerRepository interface {
	InsertAttempt(ctx context.Context, attempt *domain.PaymentAttempt) error
	GetAttempt(ctx context.Context, channel domain.PaymentChannel, providerRef string) (*domain.PaymentAttempt, error)
	GetAttemptByID(ctx context.Context, id string) (*domain.PaymentAttempt, error)
	HasPendingAttempt(ctx context.Context, orderID int64, channel domain.PaymentChannel) (bool, error)

	// CompleteAttempt and FailAttempt are compare-and-swap transitions: they
	// only touch rows still in pending state and report whether a row moved.
	CompleteAttempt(ctx context.Context, id, settlementRef string, settledAt time.Time, collectedAmount *decimal.Decimal) (bool, error)
	FailAttempt(ctx context.Context, id, reason string) (bool, error)

	ListAttemptsByOrder(ctx context.Context, orderID int64) ([]*domain.PaymentAttempt, error)
	ListStalePending(ctx context.Context, olderThan time.Time) ([]*domain.PaymentAttempt, error)
}

type ledgerRepo struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) LedgerRepository {
	return &ledgerRepo{db: db}
}

const attemptColumns = `
	id, order_id, channel, provider_ref, amount, phone_number,
	status, failure_reason, settlement_ref, settled_at, created_at
`

func (r *ledgerRepo) InsertAttempt(ctx context.Context, attempt *domain.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (
			id, order_id, channel, provider_ref, amount, phone_number,
			status, failure_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		attempt.ID,
		attempt.OrderID,
		attempt.Channel,
		attempt.ProviderRef,
		attempt.Amount,
		attempt.PhoneNumber,
		attempt.Status,
		attempt.FailureReason,
	).Scan(&attempt.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case constraintOnePending:
			return domain.ErrConflictingPendingAttempt
		default:
			return domain.ErrDuplicateAttempt
		}
	}
	return err
}

func (r *ledgerRepo) GetAttempt(ctx context.Context, channel domain.PaymentChannel, providerRef string) (*domain.PaymentAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE channel = $1 AND provider_ref = $2`
	return r.scanAttempt(r.db.QueryRow(ctx, query, channel, providerRef))
}

func (r *ledgerRepo) GetAttemptByID(ctx context.Context, id string) (*domain.PaymentAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE id = $1`
	return r.scanAttempt(r.db.QueryRow(ctx, query, id))
}

func (r *ledgerRepo) HasPendingAttempt(ctx context.Context, orderID int64, channel domain.PaymentChannel) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payment_attempts
			WHERE order_id = $1 AND channel = $2 AND status = 'pending'
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, orderID, channel).Scan(&exists)
	return exists, err
}

func (r *ledgerRepo) CompleteAttempt(ctx context.Context, id, settlementRef string, settledAt time.Time, collectedAmount *decimal.Decimal) (bool, error) {
	query := `
		UPDATE payment_attempts
		SET
			status = 'completed',
			settlement_ref = $1,
			settled_at = $2,
			amount = COALESCE($3, amount)
		WHERE id = $4 AND status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query, settlementRef, settledAt, collectedAmount, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ledgerRepo) FailAttempt(ctx context.Context, id, reason string) (bool, error) {
	query := `
		UPDATE payment_attempts
		SET status = 'failed', failure_reason = $1
		WHERE id = $2 AND status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query, reason, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ledgerRepo) ListAttemptsByOrder(ctx context.Context, orderID int64) ([]*domain.PaymentAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE order_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectAttempts(rows)
}

func (r *ledgerRepo) ListStalePending(ctx context.Context, olderThan time.Time) ([]*domain.PaymentAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE status = 'pending' AND created_at < $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectAttempts(rows)
}

func (r *ledgerRepo) scanAttempt(row pgx.Row) (*domain.PaymentAttempt, error) {
	var attempt domain.PaymentAttempt
	err := row.Scan(
		&attempt.ID,
		&attempt.OrderID,
		&attempt.Channel,
		&attempt.ProviderRef,
		&attempt.Amount,
		&attempt.PhoneNumber,
		&attempt.Status,
		&attempt.FailureReason,
		&attempt.SettlementRef,
		&attempt.SettledAt,
		&attempt.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUnknownAttempt
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *ledgerRepo) collectAttempts(rows pgx.Rows) ([]*domain.PaymentAttempt, error) {
	var attempts []*domain.PaymentAttempt
	for rows.Next() {
		attempt, err := r.scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}
