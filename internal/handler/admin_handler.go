package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"shop-payment-service/internal/channel"
	"shop-payment-service/internal/domain"
	"shop-payment-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AdminHandler is the operator-facing surface: manual confirmations for the
// channels whose signal is a human, refund bookkeeping, and the timeout
// sweep hook.
type AdminHandler struct {
	paybill    *channel.PaybillAdapter
	cod        *channel.CODAdapter
	bank       *channel.BankTransferAdapter
	engine     *usecase.ReconcileUsecase
	refunds    *usecase.RefundUsecase
	staleAfter time.Duration
	logger     *zap.Logger
}

func NewAdminHandler(
	paybill *channel.PaybillAdapter,
	cod *channel.CODAdapter,
	bank *channel.BankTransferAdapter,
	engine *usecase.ReconcileUsecase,
	refunds *usecase.RefundUsecase,
	staleAfter time.Duration,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		paybill:    paybill,
		cod:        cod,
		bank:       bank,
		engine:     engine,
		refunds:    refunds,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

type paybillRequest struct {
	OrderID         int64           `json:"order_id"`
	TransactionCode string          `json:"transaction_code"`
	Amount          decimal.Decimal `json:"amount"`
	PhoneNumber     string          `json:"phone_number"`
}

func (h *AdminHandler) HandleRecordPaybill(w http.ResponseWriter, r *http.Request) {
	var req paybillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID <= 0 || req.TransactionCode == "" {
		respondError(w, http.StatusBadRequest, "order_id and transaction_code are required")
		return
	}

	attempt, err := h.paybill.RecordConfirmed(r.Context(), req.OrderID, req.TransactionCode, req.Amount, req.PhoneNumber)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, attempt)
}

type codInitiateRequest struct {
	OrderID int64 `json:"order_id"`
}

func (h *AdminHandler) HandleInitiateCOD(w http.ResponseWriter, r *http.Request) {
	var req codInitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID <= 0 {
		respondError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	attempt, err := h.cod.Initiate(r.Context(), req.OrderID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, attempt)
}

type codConfirmRequest struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
}

func (h *AdminHandler) HandleConfirmCOD(w http.ResponseWriter, r *http.Request) {
	var req codConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Reference == "" || req.Amount.LessThanOrEqual(decimal.Zero) {
		respondError(w, http.StatusBadRequest, "reference and a positive amount are required")
		return
	}

	if err := h.cod.ConfirmCollected(r.Context(), req.Reference, req.Amount); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

type bankConfirmRequest struct {
	Reference     string `json:"reference"`
	BankReference string `json:"bank_reference"`
}

func (h *AdminHandler) HandleConfirmBank(w http.ResponseWriter, r *http.Request) {
	var req bankConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Reference == "" || req.BankReference == "" {
		respondError(w, http.StatusBadRequest, "reference and bank_reference are required")
		return
	}

	if err := h.bank.ConfirmTransfer(r.Context(), req.Reference, req.BankReference); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (h *AdminHandler) HandleListOrderAttempts(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	attempts, err := h.engine.AttemptsForOrder(r.Context(), orderID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, attempts)
}

type refundRequestBody struct {
	AttemptID string          `json:"attempt_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

func (h *AdminHandler) HandleRequestRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	refund, err := h.refunds.RequestRefund(r.Context(), domain.RefundRequest{
		AttemptID: req.AttemptID,
		Amount:    req.Amount,
		Reason:    req.Reason,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, refund)
}

func (h *AdminHandler) HandleApproveRefund(w http.ResponseWriter, r *http.Request) {
	h.transitionRefund(w, r, h.refunds.Approve)
}

func (h *AdminHandler) HandleRejectRefund(w http.ResponseWriter, r *http.Request) {
	h.transitionRefund(w, r, h.refunds.Reject)
}

func (h *AdminHandler) HandleSettleRefund(w http.ResponseWriter, r *http.Request) {
	h.transitionRefund(w, r, h.refunds.Settle)
}

func (h *AdminHandler) transitionRefund(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, refundID string) error) {
	refundID := chi.URLParam(r, "refund_id")
	if refundID == "" {
		respondError(w, http.StatusBadRequest, "refund id is required")
		return
	}

	if err := fn(r.Context(), refundID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (h *AdminHandler) HandleSweepStale(w http.ResponseWriter, r *http.Request) {
	horizon := time.Now().Add(-h.staleAfter)
	swept, err := h.engine.SweepStale(r.Context(), horizon)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"swept": swept})
}
