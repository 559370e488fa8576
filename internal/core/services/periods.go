// internal/core/services/periods.go
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

// PeriodService handles tax period lifecycle and purchase recording.
type PeriodService struct {
	store  ports.LedgerStore
	logger *slog.Logger
	now    func() time.Time
}

// Statically assert that *PeriodService implements the PeriodService interface.
var _ ports.PeriodService = (*PeriodService)(nil)

// NewPeriodService creates a new period service.
func NewPeriodService(store ports.LedgerStore, logger *slog.Logger) *PeriodService {
	return &PeriodService{
		store:  store,
		logger: logger.With(slog.String("service", "periods")),
		now:    time.Now,
	}
}

// CreatePeriod opens a new reporting window. The store rejects any window
// overlapping an existing period for the same store.
func (s *PeriodService) CreatePeriod(ctx context.Context, storeID uuid.UUID, start, end time.Time) (*domain.TaxPeriod, error) {
	if storeID == uuid.Nil {
		return nil, &domain.ValidationError{Field: "store_id", Reason: "is required"}
	}

	period := &domain.TaxPeriod{
		ID:        uuid.New(),
		StoreID:   storeID,
		StartDate: start,
		EndDate:   end,
		Status:    domain.PeriodOpen,
		CreatedAt: s.now(),
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreatePeriod(ctx, period); err != nil {
		return nil, fmt.Errorf("failed to create period: %w", err)
	}

	s.logger.InfoContext(ctx, "opened tax period",
		slog.String("period_id", period.ID.String()),
		slog.String("store_id", storeID.String()),
		slog.Time("start_date", start),
		slog.Time("end_date", end))

	return period, nil
}

// ClosePeriod finalizes a period. The store recomputes the aggregates from
// the underlying sales and purchases while holding out concurrent postings,
// so the frozen figures are authoritative even if an incremental update was
// ever missed.
func (s *PeriodService) ClosePeriod(ctx context.Context, periodID uuid.UUID) (*domain.TaxPeriod, error) {
	period, err := s.store.ClosePeriod(ctx, periodID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to close period: %w", err)
	}

	s.logger.InfoContext(ctx, "closed tax period",
		slog.String("period_id", period.ID.String()),
		slog.Int64("output_vat", int64(period.Aggregates.OutputVAT)),
		slog.Int64("input_vat", int64(period.Aggregates.InputVAT)),
		slog.Int64("vat_payable", int64(period.Aggregates.VATPayable)))

	return period, nil
}

// GetPeriod retrieves a period with its current aggregates.
func (s *PeriodService) GetPeriod(ctx context.Context, periodID uuid.UUID) (*domain.TaxPeriod, error) {
	period, err := s.store.FindPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to get period: %w", err)
	}
	return period, nil
}

// ListPeriods returns every period for a store, newest first.
func (s *PeriodService) ListPeriods(ctx context.Context, storeID uuid.UUID) ([]domain.TaxPeriod, error) {
	periods, err := s.store.ListPeriods(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	return periods, nil
}

// RecordPurchase posts a procurement record into the open period covering
// its date, feeding input VAT into the reconciliation.
func (s *PeriodService) RecordPurchase(ctx context.Context, purchase *domain.Purchase) (*domain.Purchase, error) {
	if purchase.StoreID == uuid.Nil {
		return nil, &domain.ValidationError{Field: "store_id", Reason: "is required"}
	}
	if err := purchase.Validate(); err != nil {
		return nil, err
	}

	period, err := s.store.FindCoveringPeriod(ctx, purchase.StoreID, purchase.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tax period: %w", err)
	}
	if !period.Open() {
		return nil, domain.ErrPeriodClosed
	}

	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	purchase.TaxPeriodID = period.ID
	purchase.CreatedAt = s.now()

	if err := s.store.RecordPurchase(ctx, purchase); err != nil {
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	s.logger.InfoContext(ctx, "recorded purchase",
		slog.String("purchase_id", purchase.ID.String()),
		slog.String("period_id", period.ID.String()),
		slog.Int64("input_vat", int64(purchase.InputVAT)))

	return purchase, nil
}
