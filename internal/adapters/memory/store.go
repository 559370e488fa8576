// internal/adapters/memory/store.go
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kobopos/ledger-be/internal/core/domain"
	"github.com/kobopos/ledger-be/internal/core/ports"
)

// Store is an in-process LedgerStore used for development mode and tests.
// It mirrors the transactional semantics of the Postgres adapter: RecordSale
// is all-or-nothing, stock never goes negative, and invoice numbers are
// strictly increasing per store.
type Store struct {
	mu sync.RWMutex

	products map[uuid.UUID]*domain.Product
	sales    map[uuid.UUID]*domain.Sale
	purchase map[uuid.UUID]*domain.Purchase
	periods  map[uuid.UUID]*domain.TaxPeriod
	invoices map[uuid.UUID]int64
	configs  map[uuid.UUID]domain.TaxConfig

	logger *slog.Logger
}

// Statically assert that *Store implements the LedgerStore interface.
var _ ports.LedgerStore = (*Store)(nil)

// NewStore creates an empty in-memory ledger store.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		products: make(map[uuid.UUID]*domain.Product),
		sales:    make(map[uuid.UUID]*domain.Sale),
		purchase: make(map[uuid.UUID]*domain.Purchase),
		periods:  make(map[uuid.UUID]*domain.TaxPeriod),
		invoices: make(map[uuid.UUID]int64),
		configs:  make(map[uuid.UUID]domain.TaxConfig),
		logger:   logger.With(slog.String("adapter", "memory")),
	}
}

// SaveProduct inserts or replaces a product record.
func (s *Store) SaveProduct(_ context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *product
	s.products[product.ID] = &cp
	return nil
}

// FindProduct retrieves a product by ID.
func (s *Store) FindProduct(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// FindProducts retrieves the requested products belonging to a store.
// Missing IDs are simply absent from the result map.
func (s *Store) FindProducts(_ context.Context, storeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok && p.StoreID == storeID {
			out[id] = *p
		}
	}
	return out, nil
}

// RecordSale atomically assigns the invoice number, decrements stock for
// every line, inserts the sale and bumps the covering period's aggregates.
// The whole operation runs under the write lock, so stock checked is stock
// decremented even when sales race.
func (s *Store) RecordSale(_ context.Context, sale *domain.Sale) ([]domain.StockLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	period, ok := s.periods[sale.TaxPeriodID]
	if !ok {
		return nil, domain.ErrNoOpenPeriod
	}
	if !period.Open() {
		return nil, domain.ErrPeriodClosed
	}

	// Validate every line before touching anything.
	for _, it := range sale.Items {
		p, ok := s.products[it.ProductID]
		if !ok {
			return nil, &domain.InvalidProductError{ProductID: it.ProductID, Reason: "not found"}
		}
		if p.StockQuantity < it.QuantitySold {
			return nil, &domain.InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.QuantitySold,
				Available: p.StockQuantity,
			}
		}
	}

	levels := make([]domain.StockLevel, 0, len(sale.Items))
	for _, it := range sale.Items {
		p := s.products[it.ProductID]
		p.StockQuantity -= it.QuantitySold
		p.UpdatedAt = sale.CreatedAt
		levels = append(levels, domain.StockLevel{
			ProductID: p.ID,
			StoreID:   p.StoreID,
			Name:      p.Name,
			Quantity:  p.StockQuantity,
			Threshold: p.LowStockThreshold,
		})
	}

	s.invoices[sale.StoreID]++
	sale.InvoiceNumber = s.invoices[sale.StoreID]

	cp := cloneSale(sale)
	s.sales[sale.ID] = cp
	period.Aggregates.ApplySale(cp)

	return levels, nil
}

// FindSale retrieves a sale by ID.
func (s *Store) FindSale(_ context.Context, id uuid.UUID) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.sales[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneSale(sale), nil
}

// ListSales returns sales matching the query, newest first.
func (s *Store) ListSales(_ context.Context, q ports.SaleQuery) ([]domain.Sale, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Sale, 0)
	for _, sale := range s.sales {
		if q.StoreID != uuid.Nil && sale.StoreID != q.StoreID {
			continue
		}
		if q.TaxPeriodID != uuid.Nil && sale.TaxPeriodID != q.TaxPeriodID {
			continue
		}
		if !q.From.IsZero() && sale.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !sale.CreatedAt.Before(q.To) {
			continue
		}
		matched = append(matched, sale)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].InvoiceNumber > matched[j].InvoiceNumber
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]domain.Sale, 0, len(matched))
	for _, sale := range matched {
		out = append(out, *cloneSale(sale))
	}
	return out, total, nil
}

// UpdateDelivery replaces the delivery state of a sale. The financial fields
// stay untouched.
func (s *Store) UpdateDelivery(_ context.Context, saleID uuid.UUID, delivery *domain.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[saleID]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *delivery
	sale.Delivery = &cp
	return nil
}

// RecordPurchase inserts a purchase and bumps the covering period's input
// VAT in the same critical section.
func (s *Store) RecordPurchase(_ context.Context, purchase *domain.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	period, ok := s.periods[purchase.TaxPeriodID]
	if !ok {
		return domain.ErrNoOpenPeriod
	}
	if !period.Open() {
		return domain.ErrPeriodClosed
	}

	cp := *purchase
	s.purchase[purchase.ID] = &cp
	period.Aggregates.ApplyPurchase(&cp)
	return nil
}

// ListPurchases returns the purchases posted into a period.
func (s *Store) ListPurchases(_ context.Context, periodID uuid.UUID) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Purchase, 0)
	for _, p := range s.purchase {
		if p.TaxPeriodID == periodID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// CreatePeriod inserts a period after checking the store's existing windows
// for overlap.
func (s *Store) CreatePeriod(_ context.Context, period *domain.TaxPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.periods {
		if existing.StoreID != period.StoreID {
			continue
		}
		if existing.Overlaps(period.StartDate, period.EndDate) {
			return domain.ErrPeriodOverlap
		}
	}
	cp := *period
	s.periods[period.ID] = &cp
	return nil
}

// FindPeriod retrieves a period by ID.
func (s *Store) FindPeriod(_ context.Context, id uuid.UUID) (*domain.TaxPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.periods[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// FindCoveringPeriod resolves the period whose window covers the timestamp.
// No covering period means ErrNoOpenPeriod.
func (s *Store) FindCoveringPeriod(_ context.Context, storeID uuid.UUID, at time.Time) (*domain.TaxPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.periods {
		if p.StoreID == storeID && p.Covers(at) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNoOpenPeriod
}

// ListPeriods returns every period for a store, newest first.
func (s *Store) ListPeriods(_ context.Context, storeID uuid.UUID) ([]domain.TaxPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TaxPeriod, 0)
	for _, p := range s.periods {
		if p.StoreID == storeID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

// ClosePeriod recomputes the aggregates from the stored sales and purchases
// and freezes the period. Holding the write lock for the whole recompute
// serializes the close against concurrent sale creation.
func (s *Store) ClosePeriod(_ context.Context, periodID uuid.UUID, now time.Time) (*domain.TaxPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	period, ok := s.periods[periodID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !period.Open() {
		return nil, domain.ErrPeriodClosed
	}

	var agg domain.PeriodAggregates
	for _, sale := range s.sales {
		if sale.TaxPeriodID == periodID {
			agg.ApplySale(sale)
		}
	}
	for _, p := range s.purchase {
		if p.TaxPeriodID == periodID {
			agg.ApplyPurchase(p)
		}
	}

	if err := period.Close(agg, now); err != nil {
		return nil, err
	}
	cp := *period
	return &cp, nil
}

// NextInvoiceNumber issues the next per-store invoice number. Numbers handed
// out for sales that never commit leave gaps, which is acceptable.
func (s *Store) NextInvoiceNumber(_ context.Context, storeID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[storeID]++
	return s.invoices[storeID], nil
}

// TaxConfig returns the per-store tax settings, falling back to defaults
// when the store never saved any.
func (s *Store) TaxConfig(_ context.Context, storeID uuid.UUID) (domain.TaxConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.configs[storeID]; ok {
		return cfg, nil
	}
	return domain.DefaultTaxConfig(), nil
}

// SaveTaxConfig stores the per-store tax settings.
func (s *Store) SaveTaxConfig(_ context.Context, storeID uuid.UUID, cfg domain.TaxConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[storeID] = cfg
	return nil
}

func cloneSale(sale *domain.Sale) *domain.Sale {
	cp := *sale
	cp.Items = make([]domain.SaleLineItem, len(sale.Items))
	copy(cp.Items, sale.Items)
	if sale.Delivery != nil {
		d := *sale.Delivery
		cp.Delivery = &d
	}
	return &cp
}
