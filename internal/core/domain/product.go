// internal/core/domain/product.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is the authoritative stock record for one sellable item. Stock is
// mutated only by the ledger on sales; catalog fields are owned by the
// external inventory management surface.
type Product struct {
	ID                uuid.UUID  `json:"id"`
	StoreID           uuid.UUID  `json:"store_id"`
	Name              string     `json:"name"`
	SKU               string     `json:"sku,omitempty"`
	SellingPrice      Money      `json:"selling_price"`
	StockQuantity     int        `json:"stock_quantity"`
	LowStockThreshold int        `json:"low_stock_threshold"`
	Taxable           bool       `json:"taxable"`
	Active            bool       `json:"active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
}

// Validate performs domain validation on the product
func (p *Product) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if p.SellingPrice.Neg() {
		return &ValidationError{Field: "selling_price", Reason: "cannot be negative"}
	}
	if p.StockQuantity < 0 {
		return &ValidationError{Field: "stock_quantity", Reason: "cannot be negative"}
	}
	if p.LowStockThreshold < 0 {
		return &ValidationError{Field: "low_stock_threshold", Reason: "cannot be negative"}
	}
	return nil
}

// LowStock reports whether the current quantity has fallen to or below the
// alerting threshold.
func (p *Product) LowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}

// StockLevel is the post-decrement snapshot returned by the stock ledger,
// consumed by alerting.
type StockLevel struct {
	ProductID uuid.UUID `json:"product_id"`
	StoreID   uuid.UUID `json:"store_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Threshold int       `json:"threshold"`
}

// Low reports whether the level should raise a low-stock signal.
func (l StockLevel) Low() bool { return l.Quantity <= l.Threshold }

// Out reports whether the product is fully depleted.
func (l StockLevel) Out() bool { return l.Quantity == 0 }
