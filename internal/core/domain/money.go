// internal/core/domain/money.go
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (kobo, cents). All stored
// amounts are integers; fractional intermediate values exist only inside
// rate math and are rounded exactly once.
type Money int64

// Mul returns the amount multiplied by an integer quantity.
func (m Money) Mul(qty int) Money {
	return m * Money(qty)
}

// Neg reports whether the amount is negative. Negative period balances are
// legal (a VAT credit); negative prices and fees are not.
func (m Money) Neg() bool { return m < 0 }

// Decimal converts to a shopspring decimal for rate arithmetic.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m))
}

func (m Money) String() string {
	return fmt.Sprintf("%d", int64(m))
}

// ApplyRate multiplies a minor-unit base by a fractional rate (e.g. 0.075)
// and rounds half-up to whole minor units. decimal.Round rounds half away
// from zero, which is half-up for the non-negative bases used here.
func ApplyRate(base Money, rate decimal.Decimal) Money {
	return Money(rate.Mul(base.Decimal()).Round(0).IntPart())
}
