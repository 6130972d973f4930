package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"shop-payment-service/internal/channel"

	"go.uber.org/zap"
)

// CallbackHandler receives asynchronous confirmations from the mobile-money
// provider. It always acknowledges with the provider's expected envelope:
// Daraja redelivers on anything else, and an unknown or replayed
// confirmation must be absorbed, not retried into existence.
type CallbackHandler struct {
	mobilePush *channel.MobilePushAdapter
	logger     *zap.Logger
}

func NewCallbackHandler(mobilePush *channel.MobilePushAdapter, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{mobilePush: mobilePush, logger: logger}
}

func (h *CallbackHandler) HandleMpesaSTKCallback(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read STK callback payload", zap.Error(err))
		h.ack(w)
		return
	}

	if err := h.mobilePush.ApplyCallback(r.Context(), payload); err != nil {
		// Already logged with context by the engine; the provider is still
		// answered with success so it stops redelivering.
		h.logger.Warn("STK callback not applied",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
	}
	h.ack(w)
}

func (h *CallbackHandler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	response := map[string]interface{}{
		"ResultCode": "0",
		"ResultDesc": "Success",
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode callback response", zap.Error(err))
	}
}
