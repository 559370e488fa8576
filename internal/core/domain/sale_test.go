// internal/core/domain/sale_test.go
package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobopos/ledger-be/internal/core/domain"
)

func validSale() *domain.Sale {
	return &domain.Sale{
		ID:      uuid.New(),
		StoreID: uuid.New(),
		Items: []domain.SaleLineItem{
			{
				ProductID:       uuid.New(),
				ProductName:     "Vegetable Oil 5L",
				QuantitySold:    2,
				UnitPriceAtSale: 5_000,
				LineSubtotal:    10_000,
				Taxable:         true,
			},
		},
		Subtotal:      10_000,
		Discount:      1_000,
		TaxAmount:     675,
		DeliveryFee:   500,
		Total:         10_175,
		PaymentMethod: domain.PaymentCash,
		CreatedAt:     time.Now(),
	}
}

func TestSale_Validate(t *testing.T) {
	t.Run("valid_sale_passes", func(t *testing.T) {
		require.NoError(t, validSale().Validate())
	})

	t.Run("empty_items_rejected", func(t *testing.T) {
		s := validSale()
		s.Items = nil
		assert.Error(t, s.Validate())
	})

	t.Run("zero_quantity_rejected", func(t *testing.T) {
		s := validSale()
		s.Items[0].QuantitySold = 0
		assert.Error(t, s.Validate())
	})

	t.Run("line_subtotal_mismatch_rejected", func(t *testing.T) {
		s := validSale()
		s.Items[0].LineSubtotal = 9_999
		assert.Error(t, s.Validate())
	})

	t.Run("negative_discount_rejected", func(t *testing.T) {
		s := validSale()
		s.Discount = -1
		assert.Error(t, s.Validate())
	})

	t.Run("broken_total_identity_rejected", func(t *testing.T) {
		s := validSale()
		s.Total = s.Total + 1
		assert.Error(t, s.Validate())
	})
}

func TestSale_IsOverdue(t *testing.T) {
	now := time.Now()
	createdSixDaysAgo := now.Add(-6 * 24 * time.Hour)

	tests := []struct {
		name     string
		delivery *domain.Delivery
		created  time.Time
		want     bool
	}{
		{
			name:     "pending_delivery_six_days_old_is_overdue",
			delivery: &domain.Delivery{Type: domain.DeliveryDelivery, Status: domain.DeliveryPending},
			created:  createdSixDaysAgo,
			want:     true,
		},
		{
			name:     "in_transit_exactly_five_days_is_overdue",
			delivery: &domain.Delivery{Type: domain.DeliveryDelivery, Status: domain.DeliveryInTransit},
			created:  now.Add(-5 * 24 * time.Hour),
			want:     true,
		},
		{
			name:     "fresh_delivery_not_overdue",
			delivery: &domain.Delivery{Type: domain.DeliveryDelivery, Status: domain.DeliveryPending},
			created:  now.Add(-24 * time.Hour),
			want:     false,
		},
		{
			name:     "delivered_never_overdue",
			delivery: &domain.Delivery{Type: domain.DeliveryDelivery, Status: domain.DeliveryDelivered},
			created:  createdSixDaysAgo,
			want:     false,
		},
		{
			name:     "walk_in_never_overdue",
			delivery: &domain.Delivery{Type: domain.DeliveryWalkIn},
			created:  createdSixDaysAgo,
			want:     false,
		},
		{
			name:     "nil_delivery_never_overdue",
			delivery: nil,
			created:  createdSixDaysAgo,
			want:     false,
		},
		{
			name:     "failed_delivery_still_counts_as_outstanding",
			delivery: &domain.Delivery{Type: domain.DeliveryDelivery, Status: domain.DeliveryFailed},
			created:  createdSixDaysAgo,
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSale()
			s.Delivery = tt.delivery
			s.CreatedAt = tt.created
			assert.Equal(t, tt.want, s.IsOverdue(now))
		})
	}
}

func TestPaymentMethod_Valid(t *testing.T) {
	assert.True(t, domain.PaymentCash.Valid())
	assert.True(t, domain.PaymentCard.Valid())
	assert.True(t, domain.PaymentTransfer.Valid())
	assert.True(t, domain.PaymentPOS.Valid())
	assert.False(t, domain.PaymentMethod("bitcoin").Valid())
	assert.False(t, domain.PaymentMethod("").Valid())
}
