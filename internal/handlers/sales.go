// internal/handlers/sales.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kobopos/ledger-be/internal/core/domain"
	"github.com/kobopos/ledger-be/internal/core/ports"
)

// SalesHandler handles sale-related HTTP requests
type SalesHandler struct {
	service ports.SaleService
	logger  *slog.Logger
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(service ports.SaleService, logger *slog.Logger) *SalesHandler {
	return &SalesHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "sales")),
	}
}

// CreateSaleRequest is the JSON body for POST /api/v1/sales.
type CreateSaleRequest struct {
	StoreID       string `json:"store_id"`
	Items         []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	Discount      int64  `json:"discount"`
	DeliveryFee   int64  `json:"delivery_fee"`
	PaymentMethod string `json:"payment_method"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Delivery      *struct {
		Type    string `json:"type"`
		Address string `json:"address"`
	} `json:"delivery"`
}

// ToParams converts the request body into service params.
func (r *CreateSaleRequest) ToParams() (ports.CreateSaleParams, error) {
	storeID, err := uuid.Parse(r.StoreID)
	if err != nil {
		return ports.CreateSaleParams{}, &domain.ValidationError{Field: "store_id", Reason: "must be a valid UUID"}
	}

	params := ports.CreateSaleParams{
		StoreID:       storeID,
		Discount:      domain.Money(r.Discount),
		DeliveryFee:   domain.Money(r.DeliveryFee),
		PaymentMethod: domain.PaymentMethod(r.PaymentMethod),
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
	}
	for i, item := range r.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return ports.CreateSaleParams{}, &domain.ValidationError{
				Field:  "items[" + strconv.Itoa(i) + "].product_id",
				Reason: "must be a valid UUID",
			}
		}
		params.Items = append(params.Items, ports.CartItem{
			ProductID: productID,
			Quantity:  item.Quantity,
		})
	}
	if r.Delivery != nil {
		deliveryType, err := domain.ParseDeliveryType(r.Delivery.Type)
		if err != nil {
			return ports.CreateSaleParams{}, err
		}
		params.Delivery = &ports.DeliveryInfo{
			Type:    deliveryType,
			Address: r.Delivery.Address,
		}
	}
	return params, nil
}

// CreateSale handles POST /api/v1/sales
func (h *SalesHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params, err := req.ToParams()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	sale, err := h.service.CreateSale(ctx, params)
	if err != nil {
		if respondDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(ctx, "failed to create sale",
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to create sale")
		return
	}

	respondJSON(w, http.StatusCreated, sale)
}

// GetSale handles GET /api/v1/sales/{id}
func (h *SalesHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	saleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid sale ID format")
		return
	}

	sale, err := h.service.GetSale(ctx, saleID)
	if err != nil {
		if respondDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(ctx, "failed to get sale",
			slog.String("sale_id", saleID.String()),
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to retrieve sale")
		return
	}

	respondJSON(w, http.StatusOK, saleResponse(sale, time.Now()))
}

// ListSales handles GET /api/v1/sales
func (h *SalesHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := ports.SaleQuery{}
	if s := r.URL.Query().Get("store_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid store_id format")
			return
		}
		q.StoreID = id
	}
	if s := r.URL.Query().Get("period_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid period_id format")
			return
		}
		q.TaxPeriodID = id
	}
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid from timestamp")
			return
		}
		q.From = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid to timestamp")
			return
		}
		q.To = t
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		q.Limit, _ = strconv.Atoi(s)
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		q.Offset, _ = strconv.Atoi(s)
	}

	sales, total, err := h.service.ListSales(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list sales",
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to list sales")
		return
	}

	now := time.Now()
	items := make([]map[string]interface{}, 0, len(sales))
	for i := range sales {
		items = append(items, saleResponse(&sales[i], now))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sales": items,
		"total": total,
	})
}

// UpdateDeliveryRequest is the JSON body for PATCH /api/v1/sales/{id}/delivery.
type UpdateDeliveryRequest struct {
	Status string `json:"status"`
}

// UpdateDelivery handles PATCH /api/v1/sales/{id}/delivery
func (h *SalesHandler) UpdateDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	saleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid sale ID format")
		return
	}

	var req UpdateDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := domain.ParseDeliveryStatus(req.Status)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	sale, err := h.service.UpdateDeliveryStatus(ctx, saleID, status)
	if err != nil {
		if respondDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(ctx, "failed to update delivery",
			slog.String("sale_id", saleID.String()),
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to update delivery")
		return
	}

	h.logger.InfoContext(ctx, "delivery status updated",
		slog.String("sale_id", saleID.String()),
		slog.String("status", string(status)))

	respondJSON(w, http.StatusOK, saleResponse(sale, time.Now()))
}

// saleResponse decorates a sale with its derived overdue flag.
func saleResponse(sale *domain.Sale, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"sale":       sale,
		"is_overdue": sale.IsOverdue(now),
	}
}
