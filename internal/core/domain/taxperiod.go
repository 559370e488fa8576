// internal/core/domain/taxperiod.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PeriodStatus represents the tax period lifecycle
type PeriodStatus string

const (
	PeriodOpen   PeriodStatus = "OPEN"
	PeriodClosed PeriodStatus = "CLOSED"
)

// PeriodAggregates are the running VAT figures of one period. While the
// period is OPEN they are maintained incrementally on each sale/purchase;
// ClosePeriod recomputes them from scratch and freezes them.
type PeriodAggregates struct {
	TotalSales   Money `json:"total_sales"`
	TaxableSales Money `json:"taxable_sales"`
	OutputVAT    Money `json:"output_vat"`
	InputVAT     Money `json:"input_vat"`
	VATPayable   Money `json:"vat_payable"`
}

// Payable returns output minus input VAT. Negative is a credit.
func (a PeriodAggregates) Payable() Money { return a.OutputVAT - a.InputVAT }

// TaxPeriod is a date-bounded reporting window. Every sale and purchase
// dated in [StartDate, EndDate) belongs to exactly one period per store.
type TaxPeriod struct {
	ID         uuid.UUID        `json:"id"`
	StoreID    uuid.UUID        `json:"store_id"`
	StartDate  time.Time        `json:"start_date"`
	EndDate    time.Time        `json:"end_date"`
	Status     PeriodStatus     `json:"status"`
	Aggregates PeriodAggregates `json:"aggregates"`
	ClosedAt   *time.Time       `json:"closed_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Validate performs domain validation on the period bounds.
func (p *TaxPeriod) Validate() error {
	if !p.StartDate.Before(p.EndDate) {
		return &ValidationError{Field: "end_date", Reason: "must be after start_date"}
	}
	return nil
}

// Covers reports whether a timestamp falls inside [StartDate, EndDate).
func (p *TaxPeriod) Covers(t time.Time) bool {
	return !t.Before(p.StartDate) && t.Before(p.EndDate)
}

// Overlaps reports whether two half-open date ranges intersect.
func (p *TaxPeriod) Overlaps(start, end time.Time) bool {
	return p.StartDate.Before(end) && start.Before(p.EndDate)
}

// Open reports whether the period still accepts postings.
func (p *TaxPeriod) Open() bool { return p.Status == PeriodOpen }

// Close freezes the period with the authoritative aggregates. One-way.
func (p *TaxPeriod) Close(agg PeriodAggregates, now time.Time) error {
	if !p.Open() {
		return ErrPeriodClosed
	}
	agg.VATPayable = agg.Payable()
	p.Aggregates = agg
	p.Status = PeriodClosed
	at := now
	p.ClosedAt = &at
	return nil
}

// ApplySale adds one sale to the running aggregates.
func (a *PeriodAggregates) ApplySale(s *Sale) {
	a.TotalSales += s.Total
	if s.TaxAmount > 0 {
		a.TaxableSales += s.Subtotal - s.Discount
	}
	a.OutputVAT += s.TaxAmount
	a.VATPayable = a.Payable()
}

// ApplyPurchase adds one purchase to the running aggregates.
func (a *PeriodAggregates) ApplyPurchase(p *Purchase) {
	a.InputVAT += p.InputVAT
	a.VATPayable = a.Payable()
}
