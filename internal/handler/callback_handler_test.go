package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"shop-payment-service/config"
	"shop-payment-service/internal/channel"
	"shop-payment-service/internal/domain"
	"shop-payment-service/internal/provider/daraja"
	"shop-payment-service/internal/repository/inmemory"
	"shop-payment-service/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubOrders struct{}

func (stubOrders) GetOutstandingBalance(context.Context, int64) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (stubOrders) SetPaymentStatus(context.Context, int64, domain.OrderPaymentStatus) error {
	return nil
}
func (stubOrders) SetOrderStatus(context.Context, int64, domain.OrderStatus) error {
	return nil
}

func newCallbackFixture(t *testing.T) (*CallbackHandler, *inmemory.Ledger, *usecase.ReconcileUsecase) {
	t.Helper()
	ledger := inmemory.NewLedger()
	engine := usecase.NewReconcileUsecase(ledger, stubOrders{}, zap.NewNop())
	adapter := channel.NewMobilePushAdapter(engine, daraja.NewClient(config.MpesaConfig{}), stubOrders{}, "http://localhost/cb", zap.NewNop())
	return NewCallbackHandler(adapter, zap.NewNop()), ledger, engine
}

func stkPayload(checkoutRequestID string, resultCode int) []byte {
	payload := map[string]interface{}{
		"Body": map[string]interface{}{
			"stkCallback": map[string]interface{}{
				"MerchantRequestID": "MR-1",
				"CheckoutRequestID": checkoutRequestID,
				"ResultCode":        resultCode,
				"ResultDesc":        "desc",
				"CallbackMetadata": map[string]interface{}{
					"Item": []map[string]interface{}{
						{"Name": "Amount", "Value": 1500.0},
						{"Name": "MpesaReceiptNumber", "Value": "QWE123"},
					},
				},
			},
		},
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func requireProviderAck(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "0", body["ResultCode"])
	require.Equal(t, "Success", body["ResultDesc"])
}

func TestSTKCallbackApplied(t *testing.T) {
	h, ledger, engine := newCallbackFixture(t)
	ctx := context.Background()

	attempt, err := engine.RecordAttempt(ctx, domain.RecordAttemptRequest{
		OrderID:     42,
		Channel:     domain.ChannelMobilePush,
		ProviderRef: "ws_CO_abc123",
		Amount:      decimal.NewFromInt(1500),
		PhoneNumber: "254712345678",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/mpesa/stk", bytes.NewReader(stkPayload("ws_CO_abc123", 0)))
	rec := httptest.NewRecorder()
	h.HandleMpesaSTKCallback(rec, req)
	requireProviderAck(t, rec)

	stored, err := ledger.GetAttemptByID(ctx, attempt.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AttemptStatusCompleted, stored.Status)
	require.Equal(t, "QWE123", *stored.SettlementRef)
}

func TestSTKCallbackUnknownRefStillAcked(t *testing.T) {
	h, ledger, _ := newCallbackFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/mpesa/stk", bytes.NewReader(stkPayload("ws_CO_never_issued", 0)))
	rec := httptest.NewRecorder()
	h.HandleMpesaSTKCallback(rec, req)

	// The provider must stop redelivering, and no ledger row may appear.
	requireProviderAck(t, rec)
	require.Equal(t, 0, ledger.AttemptCount())
}

func TestSTKCallbackMalformedStillAcked(t *testing.T) {
	h, ledger, _ := newCallbackFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/mpesa/stk", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	h.HandleMpesaSTKCallback(rec, req)

	requireProviderAck(t, rec)
	require.Equal(t, 0, ledger.AttemptCount())
}

func TestSTKCallbackRedelivery(t *testing.T) {
	h, ledger, engine := newCallbackFixture(t)
	ctx := context.Background()

	attempt, err := engine.RecordAttempt(ctx, domain.RecordAttemptRequest{
		OrderID:     42,
		Channel:     domain.ChannelMobilePush,
		ProviderRef: "ws_CO_abc123",
		Amount:      decimal.NewFromInt(1500),
		PhoneNumber: "254712345678",
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/mpesa/stk", bytes.NewReader(stkPayload("ws_CO_abc123", 0)))
		rec := httptest.NewRecorder()
		h.HandleMpesaSTKCallback(rec, req)
		requireProviderAck(t, rec)
	}

	require.Equal(t, 1, ledger.AttemptCount())
	stored, err := ledger.GetAttemptByID(ctx, attempt.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AttemptStatusCompleted, stored.Status)
}
