// internal/handlers/respond.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kobopos/ledger-be/internal/core/domain"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps the ledger error taxonomy onto HTTP statuses.
// Anything unrecognized is a 500 with a generic message; details stay in
// the logs.
func respondDomainError(w http.ResponseWriter, err error) bool {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		respondError(w, http.StatusBadRequest, validationErr.Error())
		return true
	}

	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"error":      "insufficient stock",
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
		return true
	}

	var productErr *domain.InvalidProductError
	if errors.As(err, &productErr) {
		respondError(w, http.StatusUnprocessableEntity, productErr.Error())
		return true
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrNoOpenPeriod):
		respondError(w, http.StatusUnprocessableEntity, "no open tax period covers this date")
	case errors.Is(err, domain.ErrPeriodClosed):
		respondError(w, http.StatusConflict, "tax period is already closed")
	case errors.Is(err, domain.ErrPeriodOverlap):
		respondError(w, http.StatusConflict, "period overlaps an existing period")
	case errors.Is(err, domain.ErrConcurrencyConflict):
		respondError(w, http.StatusConflict, "write conflict, please retry")
	case errors.Is(err, domain.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid delivery status transition")
	default:
		return false
	}
	return true
}
