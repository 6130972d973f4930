package handler

import (
	"encoding/json"
	"net/http"

	"shop-payment-service/internal/channel"

	"go.uber.org/zap"
)

// CheckoutHandler exposes the customer-facing initiation endpoints. A failed
// mobile push still answers 200 with the failed attempt so checkout can show
// the reason and a retry affordance instead of an opaque error.
type CheckoutHandler struct {
	mobilePush *channel.MobilePushAdapter
	bank       *channel.BankTransferAdapter
	logger     *zap.Logger
}

func NewCheckoutHandler(mobilePush *channel.MobilePushAdapter, bank *channel.BankTransferAdapter, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{mobilePush: mobilePush, bank: bank, logger: logger}
}

type initiateMpesaRequest struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	PhoneNumber string `json:"phone_number"`
}

func (h *CheckoutHandler) HandleInitiateMpesa(w http.ResponseWriter, r *http.Request) {
	var req initiateMpesaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID <= 0 || req.PhoneNumber == "" || req.OrderNumber == "" {
		respondError(w, http.StatusBadRequest, "order_id, order_number and phone_number are required")
		return
	}

	attempt, err := h.mobilePush.Initiate(r.Context(), req.OrderID, req.OrderNumber, req.PhoneNumber)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, attempt)
}

type initiateBankRequest struct {
	OrderID int64 `json:"order_id"`
}

func (h *CheckoutHandler) HandleInitiateBank(w http.ResponseWriter, r *http.Request) {
	var req initiateBankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID <= 0 {
		respondError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	attempt, instructions, err := h.bank.Initiate(r.Context(), req.OrderID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"attempt":      attempt,
		"instructions": instructions,
	})
}
