package repository

import (
	"context"
	"errors"
	"fmt"

	"shop-payment-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type RefundRepository interface {
	// CreateRefund verifies the attempt is completed and that the cumulative
	// non-rejected refund amount stays within the attempt amount, then
	// inserts the record. The whole check-and-insert runs under a row lock
	// on the attempt so concurrent requests cannot both pass the sum check.
	CreateRefund(ctx context.Context, refund *domain.RefundRecord) error

	GetRefund(ctx context.Context, id string) (*domain.RefundRecord, error)

	// TransitionRefund moves a refund from exactly the given status to the
	// target status, reporting whether a row moved.
	TransitionRefund(ctx context.Context, id string, from, to domain.RefundStatus) (bool, error)

	ListRefundsByAttempt(ctx context.Context, attemptID string) ([]*domain.RefundRecord, error)
}

type refundRepo struct {
	db *pgxpool.Pool
}

func NewRefundRepository(db *pgxpool.Pool) RefundRepository {
	return &refundRepo{db: db}
}

func (r *refundRepo) CreateRefund(ctx context.Context, refund *domain.RefundRecord) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		status  domain.AttemptStatus
		orderID int64
		amount  decimal.Decimal
	)
	err = tx.QueryRow(ctx,
		`SELECT status, order_id, amount FROM payment_attempts WHERE id = $1 FOR UPDATE`,
		refund.AttemptID,
	).Scan(&status, &orderID, &amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrUnknownAttempt
	}
	if err != nil {
		return err
	}

	if status != domain.AttemptStatusCompleted {
		return domain.ErrInvalidAttemptState
	}

	var refunded decimal.Decimal
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM refund_records WHERE attempt_id = $1 AND status <> 'rejected'`,
		refund.AttemptID,
	).Scan(&refunded)
	if err != nil {
		return err
	}

	if refunded.Add(refund.Amount).GreaterThan(amount) {
		return domain.ErrOverRefund
	}

	refund.OrderID = orderID
	refund.Status = domain.RefundStatusPending
	err = tx.QueryRow(ctx, `
		INSERT INTO refund_records (id, attempt_id, order_id, amount, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`,
		refund.ID,
		refund.AttemptID,
		refund.OrderID,
		refund.Amount,
		refund.Reason,
		refund.Status,
	).Scan(&refund.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *refundRepo) GetRefund(ctx context.Context, id string) (*domain.RefundRecord, error) {
	query := `
		SELECT id, attempt_id, order_id, amount, reason, status, created_at
		FROM refund_records
		WHERE id = $1
	`

	var refund domain.RefundRecord
	err := r.db.QueryRow(ctx, query, id).Scan(
		&refund.ID,
		&refund.AttemptID,
		&refund.OrderID,
		&refund.Amount,
		&refund.Reason,
		&refund.Status,
		&refund.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRefundNotFound
	}
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *refundRepo) TransitionRefund(ctx context.Context, id string, from, to domain.RefundStatus) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE refund_records SET status = $1 WHERE id = $2 AND status = $3`,
		to, id, from,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *refundRepo) ListRefundsByAttempt(ctx context.Context, attemptID string) ([]*domain.RefundRecord, error) {
	query := `
		SELECT id, attempt_id, order_id, amount, reason, status, created_at
		FROM refund_records
		WHERE attempt_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refunds []*domain.RefundRecord
	for rows.Next() {
		var refund domain.RefundRecord
		if err := rows.Scan(
			&refund.ID,
			&refund.AttemptID,
			&refund.OrderID,
			&refund.Amount,
			&refund.Reason,
			&refund.Status,
			&refund.CreatedAt,
		); err != nil {
			return nil, err
		}
		refunds = append(refunds, &refund)
	}
	return refunds, rows.Err()
}
