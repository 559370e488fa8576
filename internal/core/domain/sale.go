// internal/core/domain/sale.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod represents how a sale was settled
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentPOS      PaymentMethod = "pos"
)

// Valid reports whether the payment method is a known value.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentPOS:
		return true
	}
	return false
}

// SaleLineItem is one cart line with the unit price snapshotted at sale time.
// The snapshot protects historical totals from later catalog price edits.
type SaleLineItem struct {
	ProductID       uuid.UUID `json:"product_id"`
	ProductName     string    `json:"product_name"`
	QuantitySold    int       `json:"quantity_sold"`
	UnitPriceAtSale Money     `json:"unit_price_at_sale"`
	LineSubtotal    Money     `json:"line_subtotal"`
	Taxable         bool      `json:"taxable"`
}

// Sale is one immutable financial record. Only the delivery state may change
// after creation.
type Sale struct {
	ID            uuid.UUID      `json:"id"`
	StoreID       uuid.UUID      `json:"store_id"`
	InvoiceNumber int64          `json:"invoice_number"`
	Items         []SaleLineItem `json:"items"`
	Subtotal      Money          `json:"subtotal"`
	Discount      Money          `json:"discount"`
	TaxAmount     Money          `json:"tax_amount"`
	DeliveryFee   Money          `json:"delivery_fee"`
	Total         Money          `json:"total"`
	PaymentMethod PaymentMethod  `json:"payment_method"`
	CustomerName  string         `json:"customer_name,omitempty"`
	CustomerPhone string         `json:"customer_phone,omitempty"`
	TaxPeriodID   uuid.UUID      `json:"tax_period_id"`
	Delivery      *Delivery      `json:"delivery,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Validate checks the total identity and line-level invariants. A sale that
// fails here must never be persisted.
func (s *Sale) Validate() error {
	if len(s.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "must not be empty"}
	}
	for _, it := range s.Items {
		if it.QuantitySold <= 0 {
			return &ValidationError{Field: "quantity_sold", Reason: "must be positive"}
		}
		if it.UnitPriceAtSale.Neg() {
			return &ValidationError{Field: "unit_price_at_sale", Reason: "cannot be negative"}
		}
		if it.LineSubtotal != it.UnitPriceAtSale.Mul(it.QuantitySold) {
			return &ValidationError{Field: "line_subtotal", Reason: "does not match quantity times unit price"}
		}
	}
	if s.Discount.Neg() || s.DeliveryFee.Neg() || s.TaxAmount.Neg() {
		return &ValidationError{Field: "amounts", Reason: "cannot be negative"}
	}
	if s.Total != s.Subtotal-s.Discount+s.TaxAmount+s.DeliveryFee {
		return &ValidationError{Field: "total", Reason: "does not equal subtotal - discount + tax + delivery fee"}
	}
	return nil
}

// IsOverdue reports whether a delivery sale has been outstanding for five
// days or more. Derived, never persisted.
func (s *Sale) IsOverdue(now time.Time) bool {
	if s.Delivery == nil || s.Delivery.Type == DeliveryWalkIn {
		return false
	}
	if s.Delivery.Status == DeliveryDelivered {
		return false
	}
	return now.Sub(s.CreatedAt) >= 5*24*time.Hour
}
