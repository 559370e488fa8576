// internal/core/ports/services.go
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kobopos/ledger-be/internal/core/domain"
)

// CartItem is one requested line of a sale: the caller's cart is a pure
// input value, never mutated by the core.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// DeliveryInfo describes optional fulfilment for a new sale.
type DeliveryInfo struct {
	Type    domain.DeliveryType `json:"type"`
	Address string              `json:"address,omitempty"`
}

// CreateSaleParams carries everything the sale recorder needs for one
// transaction.
type CreateSaleParams struct {
	StoreID       uuid.UUID            `json:"store_id"`
	Items         []CartItem           `json:"items"`
	Discount      domain.Money         `json:"discount"`
	DeliveryFee   domain.Money         `json:"delivery_fee"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	CustomerName  string               `json:"customer_name,omitempty"`
	CustomerPhone string               `json:"customer_phone,omitempty"`
	Delivery      *DeliveryInfo        `json:"delivery,omitempty"`
	// At defaults to the current time; exposed for backdated postings.
	At time.Time `json:"at,omitempty"`
}

// SaleService is the application port for the sale recorder.
type SaleService interface {
	CreateSale(ctx context.Context, params CreateSaleParams) (*domain.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	ListSales(ctx context.Context, q SaleQuery) ([]domain.Sale, int64, error)
	UpdateDeliveryStatus(ctx context.Context, saleID uuid.UUID, status domain.DeliveryStatus) (*domain.Sale, error)
}

// PeriodService is the application port for the tax period manager.
type PeriodService interface {
	CreatePeriod(ctx context.Context, storeID uuid.UUID, start, end time.Time) (*domain.TaxPeriod, error)
	ClosePeriod(ctx context.Context, periodID uuid.UUID) (*domain.TaxPeriod, error)
	GetPeriod(ctx context.Context, periodID uuid.UUID) (*domain.TaxPeriod, error)
	ListPeriods(ctx context.Context, storeID uuid.UUID) ([]domain.TaxPeriod, error)
	RecordPurchase(ctx context.Context, purchase *domain.Purchase) (*domain.Purchase, error)
}
