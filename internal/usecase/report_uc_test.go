package usecase

import (
	"context"
	"testing"
	"time"

	"shop-payment-service/internal/domain"
	"shop-payment-service/internal/repository/inmemory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReportSummary(t *testing.T) {
	ledger := inmemory.NewLedger()
	engine := NewReconcileUsecase(ledger, newFakeOrderService(decimal.Zero), zap.NewNop())
	ctx := context.Background()

	_, err := engine.RecordAttempt(ctx, domain.RecordAttemptRequest{
		OrderID: 1, Channel: domain.ChannelPaybillManual, ProviderRef: "TX1", Amount: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	require.NoError(t, engine.ApplyConfirmation(ctx, domain.ChannelPaybillManual, "TX1", domain.Confirmation{
		Success: true, SettlementRef: "TX1",
	}))

	_, err = engine.RecordAttempt(ctx, domain.RecordAttemptRequest{
		OrderID: 2, Channel: domain.ChannelPaybillManual, ProviderRef: "TX2", Amount: decimal.NewFromInt(400),
	})
	require.NoError(t, err)
	require.NoError(t, engine.ApplyConfirmation(ctx, domain.ChannelPaybillManual, "TX2", domain.Confirmation{
		Success: false, Reason: "reversed",
	}))

	_, err = engine.RecordAttempt(ctx, domain.RecordAttemptRequest{
		OrderID:     3,
		Channel:     domain.ChannelMobilePush,
		ProviderRef: "ws_1",
		Amount:      decimal.NewFromInt(250),
		PhoneNumber: "254712345678",
	})
	require.NoError(t, err)

	// Nil cache client disables caching.
	reports := NewReportUsecase(ledger, nil, zap.NewNop())

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	summary, err := reports.Summary(ctx, from, to)
	require.NoError(t, err)

	byStatus := make(map[domain.AttemptStatus]domain.StatusTotal)
	for _, st := range summary.ByStatus {
		byStatus[st.Status] = st
	}
	require.EqualValues(t, 1, byStatus[domain.AttemptStatusCompleted].Count)
	require.True(t, byStatus[domain.AttemptStatusCompleted].Total.Equal(decimal.NewFromInt(1000)))
	require.EqualValues(t, 1, byStatus[domain.AttemptStatusFailed].Count)
	require.EqualValues(t, 1, byStatus[domain.AttemptStatusPending].Count)

	byChannel := make(map[domain.PaymentChannel]domain.ChannelTotal)
	for _, ct := range summary.ByChannel {
		byChannel[ct.Channel] = ct
	}
	require.EqualValues(t, 2, byChannel[domain.ChannelPaybillManual].Count)
	require.EqualValues(t, 1, byChannel[domain.ChannelMobilePush].Count)

	// Daily totals only count completed attempts.
	require.Len(t, summary.ByDay, 1)
	require.EqualValues(t, 1, summary.ByDay[0].Count)
	require.True(t, summary.ByDay[0].Total.Equal(decimal.NewFromInt(1000)))
}

func TestReportSummaryWindowExcludes(t *testing.T) {
	ledger := inmemory.NewLedger()
	engine := NewReconcileUsecase(ledger, newFakeOrderService(decimal.Zero), zap.NewNop())
	ctx := context.Background()

	_, err := engine.RecordAttempt(ctx, domain.RecordAttemptRequest{
		OrderID: 1, Channel: domain.ChannelPaybillManual, ProviderRef: "TX1", Amount: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	reports := NewReportUsecase(ledger, nil, zap.NewNop())

	// A window entirely in the past sees nothing.
	summary, err := reports.Summary(ctx, time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Empty(t, summary.ByStatus)
	require.Empty(t, summary.ByChannel)
	require.Empty(t, summary.ByDay)
}
