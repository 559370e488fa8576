// internal/handlers/periods.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kobopos/ledger-be/internal/core/ports"
)

// PeriodsHandler handles tax period HTTP requests
type PeriodsHandler struct {
	service ports.PeriodService
	logger  *slog.Logger
}

// NewPeriodsHandler creates a new periods handler
func NewPeriodsHandler(service ports.PeriodService, logger *slog.Logger) *PeriodsHandler {
	return &PeriodsHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "periods")),
	}
}

// CreatePeriodRequest is the JSON body for POST /api/v1/periods.
type CreatePeriodRequest struct {
	StoreID   string `json:"store_id"`
	StartDate string `json:"start_date"` // RFC 3339
	EndDate   string `json:"end_date"`
}

// CreatePeriod handles POST /api/v1/periods
func (h *PeriodsHandler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreatePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid store_id format")
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid start_date, expected RFC 3339")
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid end_date, expected RFC 3339")
		return
	}

	period, err := h.service.CreatePeriod(ctx, storeID, start, end)
	if err != nil {
		if respondDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(ctx, "failed to create period",
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to create period")
		return
	}

	respondJSON(w, http.StatusCreated, period)
}

// ClosePeriod handles POST /api/v1/periods/{id}/close
func (h *PeriodsHandler) ClosePeriod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	periodID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid period ID format")
		return
	}

	period, err := h.service.ClosePeriod(ctx, periodID)
	if err != nil {
		if respondDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(ctx, "failed to close period",
			slog.String("period_id", periodID.String()),
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to close period")
		return
	}

	respondJSON(w, http.StatusOK, period)
}

// GetPeriod handles GET /api/v1/periods/{id}
func (h *PeriodsHandler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	periodID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid period ID format")
		return
	}

	period, err := h.service.GetPeriod(ctx, periodID)
	if err != nil {
		if respondDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(ctx, "failed to get period",
			slog.String("period_id", periodID.String()),
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to retrieve period")
		return
	}

	respondJSON(w, http.StatusOK, period)
}

// ListPeriods handles GET /api/v1/periods
func (h *PeriodsHandler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeIDStr := r.URL.Query().Get("store_id")
	storeID, err := uuid.Parse(storeIDStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "store_id query parameter is required")
		return
	}

	periods, err := h.service.ListPeriods(ctx, storeID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list periods",
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to list periods")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"periods": periods})
}
