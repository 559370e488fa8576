// internal/core/domain/taxperiod_test.go
package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobopos/ledger-be/internal/core/domain"
)

func monthPeriod(year int, month time.Month) *domain.TaxPeriod {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return &domain.TaxPeriod{
		ID:        uuid.New(),
		StoreID:   uuid.New(),
		StartDate: start,
		EndDate:   start.AddDate(0, 1, 0),
		Status:    domain.PeriodOpen,
	}
}

func TestTaxPeriod_Covers(t *testing.T) {
	p := monthPeriod(2026, time.January)

	assert.True(t, p.Covers(p.StartDate), "start is inclusive")
	assert.True(t, p.Covers(p.EndDate.Add(-time.Second)))
	assert.False(t, p.Covers(p.EndDate), "end is exclusive")
	assert.False(t, p.Covers(p.StartDate.Add(-time.Second)))
}

func TestTaxPeriod_Overlaps(t *testing.T) {
	jan := monthPeriod(2026, time.January)
	feb := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)

	// Adjacent windows sharing a boundary do not overlap.
	assert.False(t, jan.Overlaps(feb, feb.AddDate(0, 1, 0)))
	// A window starting mid-January does.
	assert.True(t, jan.Overlaps(jan.StartDate.AddDate(0, 0, 15), feb.AddDate(0, 0, 15)))
	// A window fully containing January does.
	assert.True(t, jan.Overlaps(jan.StartDate.AddDate(0, 0, -5), feb.AddDate(0, 0, 5)))
}

func TestTaxPeriod_Validate(t *testing.T) {
	p := monthPeriod(2026, time.March)
	require.NoError(t, p.Validate())

	p.EndDate = p.StartDate
	assert.Error(t, p.Validate())
}

func TestTaxPeriod_Close(t *testing.T) {
	p := monthPeriod(2026, time.April)
	now := time.Now()

	agg := domain.PeriodAggregates{
		TotalSales:   100_000,
		TaxableSales: 80_000,
		OutputVAT:    6_000,
		InputVAT:     1_500,
	}
	require.NoError(t, p.Close(agg, now))

	assert.Equal(t, domain.PeriodClosed, p.Status)
	require.NotNil(t, p.ClosedAt)
	assert.Equal(t, domain.Money(4_500), p.Aggregates.VATPayable)

	// One-way: a second close is rejected.
	assert.ErrorIs(t, p.Close(agg, now), domain.ErrPeriodClosed)
}

func TestPeriodAggregates_ApplySale(t *testing.T) {
	var agg domain.PeriodAggregates

	agg.ApplySale(&domain.Sale{Subtotal: 10_000, TaxAmount: 750, Total: 10_750})
	agg.ApplySale(&domain.Sale{Subtotal: 5_000, Discount: 1_000, TaxAmount: 300, Total: 4_300})
	// A zero-tax sale contributes to totals but not to the taxable base.
	agg.ApplySale(&domain.Sale{Subtotal: 2_000, Total: 2_000})

	assert.Equal(t, domain.Money(17_050), agg.TotalSales)
	assert.Equal(t, domain.Money(14_000), agg.TaxableSales)
	assert.Equal(t, domain.Money(1_050), agg.OutputVAT)
	assert.Equal(t, domain.Money(1_050), agg.VATPayable)
}

func TestPeriodAggregates_Payable(t *testing.T) {
	agg := domain.PeriodAggregates{OutputVAT: 600, InputVAT: 50}
	assert.Equal(t, domain.Money(550), agg.Payable())

	// More input than output VAT is a credit, not an error.
	credit := domain.PeriodAggregates{OutputVAT: 100, InputVAT: 400}
	assert.Equal(t, domain.Money(-300), credit.Payable())
}
