// internal/core/services/sales.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kobopos/ledger-be/internal/core/domain"
	"github.com/kobopos/ledger-be/internal/core/ports"
)

// SaleService handles sale recording and delivery lifecycle business logic.
type SaleService struct {
	store  ports.LedgerStore
	alerts ports.AlertPublisher
	logger *slog.Logger
	now    func() time.Time
}

// Statically assert that *SaleService implements the SaleService interface.
var _ ports.SaleService = (*SaleService)(nil)

// NewSaleService creates a new sale service. alerts may be nil when no
// publisher is wired (tests, seeder).
func NewSaleService(store ports.LedgerStore, alerts ports.AlertPublisher, logger *slog.Logger) *SaleService {
	return &SaleService{
		store:  store,
		alerts: alerts,
		logger: logger.With(slog.String("service", "sales")),
		now:    time.Now,
	}
}

// CreateSale records one sale end to end: validate the cart against
// authoritative stock, compute totals and VAT, resolve the covering open
// period, then persist atomically. On any failure nothing is retained.
func (s *SaleService) CreateSale(ctx context.Context, params ports.CreateSaleParams) (*domain.Sale, error) {
	if params.StoreID == uuid.Nil {
		return nil, &domain.ValidationError{Field: "store_id", Reason: "is required"}
	}
	if len(params.Items) == 0 {
		return nil, &domain.ValidationError{Field: "items", Reason: "cannot be empty"}
	}
	if params.Discount.Neg() {
		return nil, &domain.ValidationError{Field: "discount", Reason: "cannot be negative"}
	}
	if params.DeliveryFee.Neg() {
		return nil, &domain.ValidationError{Field: "delivery_fee", Reason: "cannot be negative"}
	}
	if !params.PaymentMethod.Valid() {
		return nil, &domain.ValidationError{Field: "payment_method", Reason: "is invalid"}
	}
	if params.Delivery != nil && !params.Delivery.Type.Valid() {
		return nil, &domain.ValidationError{Field: "delivery.type", Reason: "is invalid"}
	}

	at := params.At
	if at.IsZero() {
		at = s.now()
	}

	ids := make([]uuid.UUID, 0, len(params.Items))
	for i, item := range params.Items {
		if item.Quantity <= 0 {
			return nil, &domain.ValidationError{
				Field:  fmt.Sprintf("items[%d].quantity", i),
				Reason: "must be greater than zero",
			}
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.store.FindProducts(ctx, params.StoreID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	lines := make([]domain.SaleLineItem, 0, len(params.Items))
	for _, item := range params.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, &domain.InvalidProductError{ProductID: item.ProductID, Reason: "not found"}
		}
		if !product.Active || product.DeletedAt != nil {
			return nil, &domain.InvalidProductError{ProductID: item.ProductID, Reason: "is inactive"}
		}
		if product.StockQuantity < item.Quantity {
			return nil, &domain.InsufficientStockError{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: product.StockQuantity,
			}
		}
		lines = append(lines, domain.SaleLineItem{
			ProductID:       product.ID,
			ProductName:     product.Name,
			QuantitySold:    item.Quantity,
			UnitPriceAtSale: product.SellingPrice,
			LineSubtotal:    product.SellingPrice.Mul(item.Quantity),
			Taxable:         product.Taxable,
		})
	}

	cfg, err := s.store.TaxConfig(ctx, params.StoreID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tax config: %w", err)
	}
	totals := domain.ComputeTotals(lines, params.Discount, params.DeliveryFee, cfg)

	period, err := s.store.FindCoveringPeriod(ctx, params.StoreID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tax period: %w", err)
	}
	if !period.Open() {
		return nil, domain.ErrPeriodClosed
	}

	sale := &domain.Sale{
		ID:            uuid.New(),
		StoreID:       params.StoreID,
		Items:         lines,
		Subtotal:      totals.Subtotal,
		Discount:      totals.Discount,
		TaxAmount:     totals.TaxAmount,
		DeliveryFee:   totals.DeliveryFee,
		Total:         totals.Total,
		PaymentMethod: params.PaymentMethod,
		CustomerName:  params.CustomerName,
		CustomerPhone: params.CustomerPhone,
		TaxPeriodID:   period.ID,
		Delivery:      newDelivery(params.Delivery),
		CreatedAt:     at,
	}
	if err := sale.Validate(); err != nil {
		return nil, fmt.Errorf("sale validation failed: %w", err)
	}

	levels, err := s.store.RecordSale(ctx, sale)
	if err != nil {
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}

	s.logger.InfoContext(ctx, "recorded sale",
		slog.String("sale_id", sale.ID.String()),
		slog.String("store_id", sale.StoreID.String()),
		slog.Int64("invoice_number", sale.InvoiceNumber),
		slog.Int64("total", int64(sale.Total)),
		slog.Int64("tax_amount", int64(sale.TaxAmount)))

	s.publishAlerts(ctx, levels)

	return sale, nil
}

// newDelivery builds the initial delivery record. Walk-in sales carry no
// delivery state machine.
func newDelivery(info *ports.DeliveryInfo) *domain.Delivery {
	if info == nil || info.Type != domain.DeliveryDelivery {
		return &domain.Delivery{Type: domain.DeliveryWalkIn}
	}
	return &domain.Delivery{
		Type:    domain.DeliveryDelivery,
		Status:  domain.DeliveryPending,
		Address: info.Address,
	}
}

// publishAlerts emits low-stock signals for every line that crossed its
// threshold. Failures are logged, never returned: the sale has committed.
func (s *SaleService) publishAlerts(ctx context.Context, levels []domain.StockLevel) {
	if s.alerts == nil {
		return
	}
	for _, level := range levels {
		if !level.Low() {
			continue
		}
		if err := s.alerts.PublishLowStock(ctx, level); err != nil {
			s.logger.WarnContext(ctx, "failed to publish low stock alert",
				slog.String("product_id", level.ProductID.String()),
				slog.String("error", err.Error()))
		}
	}
}

// GetSale retrieves a sale by ID.
func (s *SaleService) GetSale(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	sale, err := s.store.FindSale(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return sale, nil
}

// ListSales returns sales matching the query plus the total count.
func (s *SaleService) ListSales(ctx context.Context, q ports.SaleQuery) ([]domain.Sale, int64, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	sales, total, err := s.store.ListSales(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, total, nil
}

// UpdateDeliveryStatus advances a sale's delivery through the fulfilment
// state machine.
func (s *SaleService) UpdateDeliveryStatus(ctx context.Context, saleID uuid.UUID, status domain.DeliveryStatus) (*domain.Sale, error) {
	sale, err := s.store.FindSale(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	if sale.Delivery == nil || sale.Delivery.Type != domain.DeliveryDelivery {
		return nil, &domain.ValidationError{Field: "delivery", Reason: "sale has no delivery"}
	}

	if err := sale.Delivery.Transition(status, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateDelivery(ctx, saleID, sale.Delivery); err != nil {
		return nil, fmt.Errorf("failed to update delivery: %w", err)
	}

	s.logger.InfoContext(ctx, "updated delivery status",
		slog.String("sale_id", saleID.String()),
		slog.String("status", string(status)))

	return sale, nil
}
