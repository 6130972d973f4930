package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"shop-payment-service/internal/domain"
)

type apiResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Status: "success", Data: data})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Status: "error", Message: msg})
}

// respondDomainError maps the error taxonomy onto HTTP statuses. Invariant
// violations are client-visible validation failures, not server faults.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrDuplicateAttempt),
		errors.Is(err, domain.ErrConflictingPendingAttempt):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnknownAttempt),
		errors.Is(err, domain.ErrRefundNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidAttemptState),
		errors.Is(err, domain.ErrOverRefund),
		errors.Is(err, domain.ErrInvalidRefundTransition):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
