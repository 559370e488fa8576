// internal/core/domain/purchase.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Purchase is an external procurement record feeding input VAT into the
// covering tax period.
type Purchase struct {
	ID          uuid.UUID `json:"id"`
	StoreID     uuid.UUID `json:"store_id"`
	Supplier    string    `json:"supplier,omitempty"`
	Amount      Money     `json:"amount"`
	InputVAT    Money     `json:"input_vat"`
	Date        time.Time `json:"date"`
	TaxPeriodID uuid.UUID `json:"tax_period_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate performs domain validation on the purchase
func (p *Purchase) Validate() error {
	if p.Amount.Neg() {
		return &ValidationError{Field: "amount", Reason: "cannot be negative"}
	}
	if p.InputVAT.Neg() {
		return &ValidationError{Field: "input_vat", Reason: "cannot be negative"}
	}
	if p.InputVAT > p.Amount {
		return &ValidationError{Field: "input_vat", Reason: "cannot exceed amount"}
	}
	if p.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	return nil
}
