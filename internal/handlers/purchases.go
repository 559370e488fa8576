// internal/handlers/purchases.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kobopos/ledger-be/internal/core/domain"
	"github.com/kobopos/ledger-be/internal/core/ports"
)

// PurchasesHandler handles purchase HTTP requests
type PurchasesHandler struct {
	service ports.PeriodService
	logger  *slog.Logger
}

// NewPurchasesHandler creates a new purchases handler
func NewPurchasesHandler(service ports.PeriodService, logger *slog.Logger) *PurchasesHandler {
	return &PurchasesHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "purchases")),
	}
}

// CreatePurchaseRequest is the JSON body for POST /api/v1/purchases.
type CreatePurchaseRequest struct {
	StoreID  string `json:"store_id"`
	Supplier string `json:"supplier"`
	Amount   int64  `json:"amount"`
	InputVAT int64  `json:"input_vat"`
	Date     string `json:"date"` // RFC 3339
}

// CreatePurchase handles POST /api/v1/purchases
func (h *PurchasesHandler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreatePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid store_id format")
		return
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date, expected RFC 3339")
		return
	}

	purchase, err := h.service.RecordPurchase(ctx, &domain.Purchase{
		StoreID:  storeID,
		Supplier: req.Supplier,
		Amount:   domain.Money(req.Amount),
		InputVAT: domain.Money(req.InputVAT),
		Date:     date,
	})
	if err != nil {
		if respondDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(ctx, "failed to record purchase",
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to record purchase")
		return
	}

	respondJSON(w, http.StatusCreated, purchase)
}
