// internal/core/services/periods_test.go
package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobopos/ledger-be/internal/adapters/memory"
	"github.com/kobopos/ledger-be/internal/core/domain"
	"github.com/kobopos/ledger-be/internal/core/ports"
	"github.com/kobopos/ledger-be/internal/core/services"
	"github.com/kobopos/ledger-be/test/helpers"
)

func TestPeriodService_CreatePeriod(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(helpers.TestLogger())
	service := services.NewPeriodService(store, helpers.TestLogger())

	jan := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := jan.AddDate(0, 1, 0)
	mar := feb.AddDate(0, 1, 0)

	t.Run("opens_period", func(t *testing.T) {
		period, err := service.CreatePeriod(ctx, helpers.TestStoreID, jan, feb)
		require.NoError(t, err)
		assert.Equal(t, domain.PeriodOpen, period.Status)
		assert.Nil(t, period.ClosedAt)
	})

	t.Run("rejects_overlapping_window", func(t *testing.T) {
		_, err := service.CreatePeriod(ctx, helpers.TestStoreID, jan.AddDate(0, 0, 15), feb.AddDate(0, 0, 15))
		assert.ErrorIs(t, err, domain.ErrPeriodOverlap)
	})

	t.Run("adjacent_window_allowed", func(t *testing.T) {
		_, err := service.CreatePeriod(ctx, helpers.TestStoreID, feb, mar)
		assert.NoError(t, err)
	})

	t.Run("other_store_may_overlap", func(t *testing.T) {
		_, err := service.CreatePeriod(ctx, uuid.New(), jan, feb)
		assert.NoError(t, err)
	})

	t.Run("rejects_inverted_bounds", func(t *testing.T) {
		_, err := service.CreatePeriod(ctx, helpers.TestStoreID, feb, jan)
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("rejects_missing_store", func(t *testing.T) {
		_, err := service.CreatePeriod(ctx, uuid.Nil, jan, feb)
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}

// Full reconciliation pass: three taxed sales and one purchase posted into a
// period, then closed. The frozen figures must come out of the recompute, and
// payable must equal output minus input VAT.
func TestPeriodService_ClosePeriod_Reconciliation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(helpers.TestLogger())
	periodService := services.NewPeriodService(store, helpers.TestLogger())
	saleService := services.NewSaleService(store, nil, helpers.TestLogger())

	// 10% keeps the expected figures round.
	require.NoError(t, store.SaveTaxConfig(ctx, helpers.TestStoreID, domain.TaxConfig{
		VATRegistered: true,
		ChargeVAT:     true,
		VATRate:       decimal.NewFromFloat(0.10),
		Currency:      "NGN",
	}))

	product := helpers.CreateTestProduct(func(p *domain.Product) {
		p.SellingPrice = 1_000
		p.StockQuantity = 100
	})
	require.NoError(t, store.SaveProduct(ctx, product))

	period := helpers.CreateTestPeriod()
	require.NoError(t, store.CreatePeriod(ctx, period))

	// Sales carrying 100, 200 and 300 in VAT.
	for _, qty := range []int{1, 2, 3} {
		_, err := saleService.CreateSale(ctx, ports.CreateSaleParams{
			StoreID:       helpers.TestStoreID,
			Items:         []ports.CartItem{{ProductID: product.ID, Quantity: qty}},
			PaymentMethod: domain.PaymentTransfer,
		})
		require.NoError(t, err)
	}

	// One purchase carrying 50 of input VAT.
	_, err := periodService.RecordPurchase(ctx, &domain.Purchase{
		StoreID:  helpers.TestStoreID,
		Supplier: "Mainland Wholesale Ltd",
		Amount:   1_000,
		InputVAT: 50,
		Date:     period.StartDate.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	// The incrementally maintained aggregates are already in place.
	open, err := periodService.GetPeriod(ctx, period.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(600), open.Aggregates.OutputVAT)
	assert.Equal(t, domain.Money(50), open.Aggregates.InputVAT)

	closed, err := periodService.ClosePeriod(ctx, period.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.PeriodClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, domain.Money(6_600), closed.Aggregates.TotalSales)
	assert.Equal(t, domain.Money(6_000), closed.Aggregates.TaxableSales)
	assert.Equal(t, domain.Money(600), closed.Aggregates.OutputVAT)
	assert.Equal(t, domain.Money(50), closed.Aggregates.InputVAT)
	assert.Equal(t, domain.Money(550), closed.Aggregates.VATPayable)

	// The authoritative recompute agrees with the incremental figures.
	assert.Equal(t, open.Aggregates, closed.Aggregates)
}

func TestPeriodService_ClosePeriod_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(helpers.TestLogger())
	service := services.NewPeriodService(store, helpers.TestLogger())

	period := helpers.CreateTestPeriod()
	require.NoError(t, store.CreatePeriod(ctx, period))

	t.Run("close_is_one_way", func(t *testing.T) {
		_, err := service.ClosePeriod(ctx, period.ID)
		require.NoError(t, err)

		_, err = service.ClosePeriod(ctx, period.ID)
		assert.ErrorIs(t, err, domain.ErrPeriodClosed)
	})

	t.Run("unknown_period", func(t *testing.T) {
		_, err := service.ClosePeriod(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPeriodService_RecordPurchase(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(helpers.TestLogger())
	service := services.NewPeriodService(store, helpers.TestLogger())

	period := helpers.CreateTestPeriod()
	require.NoError(t, store.CreatePeriod(ctx, period))
	inWindow := period.StartDate.Add(48 * time.Hour)

	t.Run("posts_into_covering_period", func(t *testing.T) {
		purchase, err := service.RecordPurchase(ctx, &domain.Purchase{
			StoreID:  helpers.TestStoreID,
			Amount:   2_000,
			InputVAT: 150,
			Date:     inWindow,
		})
		require.NoError(t, err)
		assert.Equal(t, period.ID, purchase.TaxPeriodID)
		assert.NotEqual(t, uuid.Nil, purchase.ID)

		stored, err := service.GetPeriod(ctx, period.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.Money(150), stored.Aggregates.InputVAT)
	})

	t.Run("input_vat_cannot_exceed_amount", func(t *testing.T) {
		_, err := service.RecordPurchase(ctx, &domain.Purchase{
			StoreID:  helpers.TestStoreID,
			Amount:   100,
			InputVAT: 150,
			Date:     inWindow,
		})
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("no_covering_period", func(t *testing.T) {
		_, err := service.RecordPurchase(ctx, &domain.Purchase{
			StoreID:  helpers.TestStoreID,
			Amount:   100,
			InputVAT: 5,
			Date:     period.EndDate.Add(time.Hour),
		})
		assert.ErrorIs(t, err, domain.ErrNoOpenPeriod)
	})

	t.Run("closed_period_rejected", func(t *testing.T) {
		_, err := service.ClosePeriod(ctx, period.ID)
		require.NoError(t, err)

		_, err = service.RecordPurchase(ctx, &domain.Purchase{
			StoreID:  helpers.TestStoreID,
			Amount:   100,
			InputVAT: 5,
			Date:     inWindow,
		})
		assert.ErrorIs(t, err, domain.ErrPeriodClosed)
	})
}

func TestPeriodService_ListPeriods(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(helpers.TestLogger())
	service := services.NewPeriodService(store, helpers.TestLogger())

	jan := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := service.CreatePeriod(ctx, helpers.TestStoreID, jan.AddDate(0, i, 0), jan.AddDate(0, i+1, 0))
		require.NoError(t, err)
	}

	periods, err := service.ListPeriods(ctx, helpers.TestStoreID)
	require.NoError(t, err)
	require.Len(t, periods, 3)
	// Newest first.
	assert.True(t, periods[0].StartDate.After(periods[1].StartDate))
	assert.True(t, periods[1].StartDate.After(periods[2].StartDate))
}
