// internal/core/ports/ledger_store.go
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kobopos/ledger-be/internal/core/domain"
)

// ProductRepository is the persistence port for authoritative stock records.
type ProductRepository interface {
	SaveProduct(ctx context.Context, product *domain.Product) error
	FindProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindProducts(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error)
}

// SaleRepository persists immutable sales. RecordSale is the atomic unit of
// the ledger: within one transaction it assigns the next invoice number for
// the store, decrements stock for every line item (all-or-nothing), inserts
// the sale, and bumps the covering period's running aggregates. On any
// failure no mutation is retained. It returns the post-decrement stock
// levels for alerting.
type SaleRepository interface {
	RecordSale(ctx context.Context, sale *domain.Sale) ([]domain.StockLevel, error)
	FindSale(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	ListSales(ctx context.Context, q SaleQuery) ([]domain.Sale, int64, error)
	UpdateDelivery(ctx context.Context, saleID uuid.UUID, delivery *domain.Delivery) error
}

// PurchaseRepository persists procurement records feeding input VAT.
// RecordPurchase updates the covering period's aggregates in the same unit.
type PurchaseRepository interface {
	RecordPurchase(ctx context.Context, purchase *domain.Purchase) error
	ListPurchases(ctx context.Context, periodID uuid.UUID) ([]domain.Purchase, error)
}

// TaxPeriodRepository owns period lifecycle persistence. ClosePeriod must
// serialize against concurrent sale creation for the store and recompute
// the aggregates from the underlying sales and purchases, not from the
// incrementally maintained figures.
type TaxPeriodRepository interface {
	CreatePeriod(ctx context.Context, period *domain.TaxPeriod) error
	FindPeriod(ctx context.Context, id uuid.UUID) (*domain.TaxPeriod, error)
	FindCoveringPeriod(ctx context.Context, storeID uuid.UUID, at time.Time) (*domain.TaxPeriod, error)
	ListPeriods(ctx context.Context, storeID uuid.UUID) ([]domain.TaxPeriod, error)
	ClosePeriod(ctx context.Context, periodID uuid.UUID, now time.Time) (*domain.TaxPeriod, error)
}

// InvoiceSequence issues per-store invoice numbers: strictly increasing,
// unique, gaps tolerated when a sale attempt rolls back.
type InvoiceSequence interface {
	NextInvoiceNumber(ctx context.Context, storeID uuid.UUID) (int64, error)
}

// StoreConfigRepository exposes the per-store tax configuration consumed
// from the external store-settings surface.
type StoreConfigRepository interface {
	TaxConfig(ctx context.Context, storeID uuid.UUID) (domain.TaxConfig, error)
	SaveTaxConfig(ctx context.Context, storeID uuid.UUID, cfg domain.TaxConfig) error
}

// LedgerStore aggregates every persistence port the ledger core needs. The
// Postgres and in-memory adapters both implement it.
type LedgerStore interface {
	ProductRepository
	SaleRepository
	PurchaseRepository
	TaxPeriodRepository
	InvoiceSequence
	StoreConfigRepository
}

// SaleQuery holds filters for listing sales.
type SaleQuery struct {
	StoreID     uuid.UUID
	TaxPeriodID uuid.UUID
	From        time.Time
	To          time.Time
	Limit       int
	Offset      int
}
