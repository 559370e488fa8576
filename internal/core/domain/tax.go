// internal/core/domain/tax.go
package domain

import "github.com/shopspring/decimal"

// DefaultVATRate is the statutory 7.5% applied when a store has no explicit
// rate configured.
var DefaultVATRate = decimal.NewFromFloat(0.075)

// TaxConfig is the per-store tax configuration consumed from store settings.
type TaxConfig struct {
	VATRegistered bool            `json:"vat_registered"`
	ChargeVAT     bool            `json:"charge_vat"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	Currency      string          `json:"currency"`
}

// DefaultTaxConfig is the configuration applied to stores that never saved
// settings: VAT charged at the statutory rate.
func DefaultTaxConfig() TaxConfig {
	return TaxConfig{
		VATRegistered: true,
		ChargeVAT:     true,
		VATRate:       DefaultVATRate,
		Currency:      "NGN",
	}
}

// Rate returns the effective VAT rate, falling back to the default.
func (c TaxConfig) Rate() decimal.Decimal {
	if c.VATRate.IsZero() {
		return DefaultVATRate
	}
	return c.VATRate
}

// Totals is the result of the tax computation for one cart.
type Totals struct {
	Subtotal    Money `json:"subtotal"`
	Discount    Money `json:"discount"`
	TaxAmount   Money `json:"tax_amount"`
	DeliveryFee Money `json:"delivery_fee"`
	Total       Money `json:"total"`
}

// ComputeTotals derives subtotal, VAT and total for a cart. It is pure: no
// repository access, no clock.
//
// Tax is charged on subtotal minus discount, never on the delivery fee
// (delivery is a pass-through, not a taxable good). Rounding is half-up,
// applied once at the aggregate tax amount so that
//
//	total == subtotal - discount + tax + deliveryFee
//
// holds exactly in minor units.
func ComputeTotals(items []SaleLineItem, discount, deliveryFee Money, cfg TaxConfig) Totals {
	var subtotal Money
	var taxableBase Money
	for _, it := range items {
		subtotal += it.LineSubtotal
		if it.Taxable {
			taxableBase += it.LineSubtotal
		}
	}

	if discount > subtotal {
		discount = subtotal
	}

	var tax Money
	if cfg.ChargeVAT {
		base := taxableBase - discount
		if base < 0 {
			base = 0
		}
		tax = ApplyRate(base, cfg.Rate())
	}

	return Totals{
		Subtotal:    subtotal,
		Discount:    discount,
		TaxAmount:   tax,
		DeliveryFee: deliveryFee,
		Total:       subtotal - discount + tax + deliveryFee,
	}
}
