// internal/handlers/products.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/kobopos/ledger-be/internal/core/domain"
	"github.com/kobopos/ledger-be/internal/core/ports"
)

// ProductsHandler exposes the ledger's view of products: stock levels plus
// the upsert surface the catalog system syncs through.
type ProductsHandler struct {
	store  ports.LedgerStore
	logger *slog.Logger
}

// NewProductsHandler creates a new products handler
func NewProductsHandler(store ports.LedgerStore, logger *slog.Logger) *ProductsHandler {
	return &ProductsHandler{
		store:  store,
		logger: logger.With(slog.String("handler", "products")),
	}
}

// UpsertProductRequest is the JSON body for PUT /api/v1/products/{id}.
type UpsertProductRequest struct {
	StoreID           string `json:"store_id"`
	Name              string `json:"name"`
	SKU               string `json:"sku"`
	SellingPrice      int64  `json:"selling_price"`
	StockQuantity     int    `json:"stock_quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	Taxable           *bool  `json:"taxable"`
	Active            *bool  `json:"active"`
}

// UpsertProduct handles PUT /api/v1/products/{id}
func (h *ProductsHandler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var req UpsertProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid store_id format")
		return
	}

	product := &domain.Product{
		ID:                productID,
		StoreID:           storeID,
		Name:              req.Name,
		SKU:               req.SKU,
		SellingPrice:      domain.Money(req.SellingPrice),
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: req.LowStockThreshold,
		Taxable:           true,
		Active:            true,
	}
	if req.Taxable != nil {
		product.Taxable = *req.Taxable
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := h.store.SaveProduct(ctx, product); err != nil {
		if respondDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(ctx, "failed to save product",
			slog.String("product_id", productID.String()),
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to save product")
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// GetStock handles GET /api/v1/products/{id}/stock
func (h *ProductsHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.store.FindProduct(ctx, productID)
	if err != nil {
		if respondDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(ctx, "failed to get product",
			slog.String("product_id", productID.String()),
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product_id":          product.ID,
		"store_id":            product.StoreID,
		"name":                product.Name,
		"stock_quantity":      product.StockQuantity,
		"low_stock_threshold": product.LowStockThreshold,
		"low_stock":           product.LowStock(),
	})
}
