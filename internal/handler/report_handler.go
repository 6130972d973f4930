package handler

import (
	"net/http"
	"time"

	"shop-payment-service/internal/usecase"

	"go.uber.org/zap"
)

type ReportHandler struct {
	reports *usecase.ReportUsecase
	logger  *zap.Logger
}

func NewReportHandler(reports *usecase.ReportUsecase, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// HandlePaymentsReport serves the dashboard aggregates for a caller-supplied
// window (from/to as RFC 3339 or YYYY-MM-DD; defaults to the last 30 days).
func (h *ReportHandler) HandlePaymentsReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid 'from' timestamp")
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid 'to' timestamp")
			return
		}
		to = t
	}
	if !from.Before(to) {
		respondError(w, http.StatusBadRequest, "'from' must be before 'to'")
		return
	}

	summary, err := h.reports.Summary(r.Context(), from, to)
	if err != nil {
		h.logger.Error("failed to build payments report", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
