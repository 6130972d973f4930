package usecase

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"shop-payment-service/internal/domain"
	"shop-payment-service/internal/repository"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const lockStripes = 64

// ReconcileUsecase is the only component that mutates the ledger. It
// serializes work per (channel, provider ref) key: near-simultaneous webhook
// redeliveries for one attempt queue behind each other, unrelated keys run in
// parallel. Durable serialization is still the store's compare-and-swap SQL;
// the stripes only keep one instance from racing itself.
type ReconcileUsecase struct {
	ledger repository.LedgerRepository
	orders domain.OrderService
	logger *zap.Logger

	locks [lockStripes]sync.Mutex
}

func NewReconcileUsecase(ledger repository.LedgerRepository, orders domain.OrderService, logger *zap.Logger) *ReconcileUsecase {
	return &ReconcileUsecase{
		ledger: ledger,
		orders: orders,
		logger: logger,
	}
}

func (uc *ReconcileUsecase) lockKey(channel domain.PaymentChannel, providerRef string) func() {
	h := fnv.New32a()
	h.Write([]byte(channel))
	h.Write([]byte{0})
	h.Write([]byte(providerRef))
	m := &uc.locks[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

// RecordAttempt persists a new pending ledger row. The uniqueness invariants
// are checked by the store's compare-and-insert, so two concurrent
// initiations for the same order and channel cannot both succeed.
func (uc *ReconcileUsecase) RecordAttempt(ctx context.Context, req domain.RecordAttemptRequest) (*domain.PaymentAttempt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := uc.lockKey(req.Channel, req.ProviderRef)
	defer unlock()

	attempt := newAttempt(req)
	attempt.Status = domain.AttemptStatusPending

	if err := uc.ledger.InsertAttempt(ctx, attempt); err != nil {
		if errors.Is(err, domain.ErrDuplicateAttempt) || errors.Is(err, domain.ErrConflictingPendingAttempt) {
			uc.logger.Warn("attempt rejected by ledger invariant",
				zap.String("channel", string(req.Channel)),
				zap.String("provider_ref", req.ProviderRef),
				zap.Int64("order_id", req.OrderID),
				zap.Error(err))
		}
		return nil, err
	}

	uc.logger.Info("payment attempt recorded",
		zap.String("attempt_id", attempt.ID),
		zap.String("channel", string(attempt.Channel)),
		zap.String("provider_ref", attempt.ProviderRef),
		zap.Int64("order_id", attempt.OrderID),
		zap.String("amount", attempt.Amount.String()))

	return attempt, nil
}

// RecordFailedAttempt writes a terminal failed row in one insert. This is
// how a transport failure during initiation is captured: the caller gets a
// failed attempt with a reason back, never a dangling pending row for a push
// that was never sent.
func (uc *ReconcileUsecase) RecordFailedAttempt(ctx context.Context, req domain.RecordAttemptRequest, reason string) (*domain.PaymentAttempt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := uc.lockKey(req.Channel, req.ProviderRef)
	defer unlock()

	attempt := newAttempt(req)
	attempt.Status = domain.AttemptStatusFailed
	attempt.FailureReason = &reason

	if err := uc.ledger.InsertAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	uc.logger.Warn("payment attempt failed at initiation",
		zap.String("attempt_id", attempt.ID),
		zap.String("channel", string(attempt.Channel)),
		zap.Int64("order_id", attempt.OrderID),
		zap.String("reason", reason))

	return attempt, nil
}

// HasPendingAttempt lets adapters check for an outstanding attempt before
// calling an external provider. The authoritative check remains the insert.
func (uc *ReconcileUsecase) HasPendingAttempt(ctx context.Context, orderID int64, channel domain.PaymentChannel) (bool, error) {
	return uc.ledger.HasPendingAttempt(ctx, orderID, channel)
}

// AttemptsForOrder lists the order's ledger rows, newest last.
func (uc *ReconcileUsecase) AttemptsForOrder(ctx context.Context, orderID int64) ([]*domain.PaymentAttempt, error) {
	return uc.ledger.ListAttemptsByOrder(ctx, orderID)
}

// AttemptByRef reads one attempt by its correlation key.
func (uc *ReconcileUsecase) AttemptByRef(ctx context.Context, channel domain.PaymentChannel, providerRef string) (*domain.PaymentAttempt, error) {
	return uc.ledger.GetAttempt(ctx, channel, providerRef)
}

// ApplyConfirmation settles a pending attempt exactly once.
//
// Unknown references return ErrUnknownAttempt and create nothing: a
// confirmation this system never initiated is a replay after data loss or a
// forged callback, and the webhook handler still acks it to stop provider
// retries. A replay that matches the stored terminal state is a silent
// no-op; a mismatching replay is logged as an anomaly and the original state
// is preserved.
func (uc *ReconcileUsecase) ApplyConfirmation(ctx context.Context, channel domain.PaymentChannel, providerRef string, conf domain.Confirmation) error {
	unlock := uc.lockKey(channel, providerRef)
	defer unlock()

	attempt, err := uc.ledger.GetAttempt(ctx, channel, providerRef)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownAttempt) {
			uc.logger.Warn("confirmation for unknown attempt",
				zap.String("channel", string(channel)),
				zap.String("provider_ref", providerRef),
				zap.Bool("success", conf.Success))
		}
		return err
	}

	if attempt.Status.Terminal() {
		uc.noteReplay(attempt, conf)
		return nil
	}

	if !conf.Success {
		reason := conf.Reason
		if reason == "" {
			reason = "payment failed"
		}
		moved, err := uc.ledger.FailAttempt(ctx, attempt.ID, reason)
		if err != nil {
			return err
		}
		if !moved {
			uc.replayAfterRace(ctx, channel, providerRef, conf)
			return nil
		}
		uc.logger.Info("payment attempt failed",
			zap.String("attempt_id", attempt.ID),
			zap.String("channel", string(channel)),
			zap.Int64("order_id", attempt.OrderID),
			zap.String("reason", reason))
		// The order stays awaiting payment so a fresh attempt can be made.
		return nil
	}

	settledAt := conf.Timestamp
	if settledAt.IsZero() {
		settledAt = time.Now().UTC()
	}

	// COD attempts are opened with zero amount; the collected amount only
	// becomes known at the door. Every other channel keeps the amount fixed
	// at initiation.
	var collected *decimal.Decimal
	if attempt.Amount.IsZero() && conf.Amount.GreaterThan(decimal.Zero) {
		amt := conf.Amount
		collected = &amt
	}

	moved, err := uc.ledger.CompleteAttempt(ctx, attempt.ID, conf.SettlementRef, settledAt, collected)
	if err != nil {
		return err
	}
	if !moved {
		uc.replayAfterRace(ctx, channel, providerRef, conf)
		return nil
	}

	uc.logger.Info("payment attempt completed",
		zap.String("attempt_id", attempt.ID),
		zap.String("channel", string(channel)),
		zap.Int64("order_id", attempt.OrderID),
		zap.String("settlement_ref", conf.SettlementRef))

	uc.advanceOrder(ctx, attempt)
	return nil
}

// advanceOrder drives the order-side effect of a completed payment. The
// ledger write is already committed: order truth lives in another bounded
// context, so a failure here is surfaced for manual reconciliation instead
// of rolling back a real money event.
func (uc *ReconcileUsecase) advanceOrder(ctx context.Context, attempt *domain.PaymentAttempt) {
	if err := uc.orders.SetPaymentStatus(ctx, attempt.OrderID, domain.OrderPaymentPaid); err != nil {
		uc.logger.Error("order payment status update failed, manual reconciliation required",
			zap.String("attempt_id", attempt.ID),
			zap.Int64("order_id", attempt.OrderID),
			zap.Error(err))
		return
	}

	orderStatus := domain.OrderStatusConfirmed
	if attempt.Channel == domain.ChannelCashOnDelivery {
		orderStatus = domain.OrderStatusDelivered
	}
	if err := uc.orders.SetOrderStatus(ctx, attempt.OrderID, orderStatus); err != nil {
		uc.logger.Error("order status update failed, manual reconciliation required",
			zap.String("attempt_id", attempt.ID),
			zap.Int64("order_id", attempt.OrderID),
			zap.String("target_status", string(orderStatus)),
			zap.Error(err))
	}
}

// replayAfterRace handles the window where another delivery settled the
// attempt between our read and our compare-and-swap.
func (uc *ReconcileUsecase) replayAfterRace(ctx context.Context, channel domain.PaymentChannel, providerRef string, conf domain.Confirmation) {
	attempt, err := uc.ledger.GetAttempt(ctx, channel, providerRef)
	if err != nil {
		uc.logger.Error("attempt vanished after lost settlement race",
			zap.String("channel", string(channel)),
			zap.String("provider_ref", providerRef),
			zap.Error(err))
		return
	}
	uc.noteReplay(attempt, conf)
}

func (uc *ReconcileUsecase) noteReplay(attempt *domain.PaymentAttempt, conf domain.Confirmation) {
	matches := (conf.Success && attempt.Status == domain.AttemptStatusCompleted) ||
		(!conf.Success && attempt.Status == domain.AttemptStatusFailed)
	if matches {
		uc.logger.Debug("duplicate confirmation replay ignored",
			zap.String("attempt_id", attempt.ID),
			zap.String("provider_ref", attempt.ProviderRef),
			zap.String("status", string(attempt.Status)))
		return
	}
	uc.logger.Error("anomalous confirmation replay, terminal state preserved",
		zap.String("attempt_id", attempt.ID),
		zap.String("provider_ref", attempt.ProviderRef),
		zap.String("stored_status", string(attempt.Status)),
		zap.Bool("replay_success", conf.Success),
		zap.String("replay_reason", conf.Reason))
}

// SweepStale fails every pending attempt created before the horizon with a
// synthetic timeout confirmation. Driven by an external scheduler through
// the admin surface.
func (uc *ReconcileUsecase) SweepStale(ctx context.Context, olderThan time.Time) (int, error) {
	stale, err := uc.ledger.ListStalePending(ctx, olderThan)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, attempt := range stale {
		err := uc.ApplyConfirmation(ctx, attempt.Channel, attempt.ProviderRef, domain.Confirmation{
			Success: false,
			Reason:  "timeout",
		})
		if err != nil {
			uc.logger.Error("failed to sweep stale attempt",
				zap.String("attempt_id", attempt.ID),
				zap.Error(err))
			continue
		}
		swept++
	}

	if swept > 0 {
		uc.logger.Info("stale pending attempts swept",
			zap.Int("count", swept),
			zap.Time("older_than", olderThan))
	}
	return swept, nil
}

func newAttempt(req domain.RecordAttemptRequest) *domain.PaymentAttempt {
	attempt := &domain.PaymentAttempt{
		ID:          ulid.Make().String(),
		OrderID:     req.OrderID,
		Channel:     req.Channel,
		ProviderRef: req.ProviderRef,
		Amount:      req.Amount,
	}
	if req.PhoneNumber != "" {
		phone := req.PhoneNumber
		attempt.PhoneNumber = &phone
	}
	return attempt
}
