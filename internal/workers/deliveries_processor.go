// internal/workers/deliveries_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kobopos/ledger-be/internal/core/ports"
)

// DeliveriesProcessor handles periodic delivery housekeeping.
type DeliveriesProcessor struct {
	store  ports.LedgerStore
	logger *slog.Logger
}

// NewDeliveriesProcessor creates a new deliveries processor
func NewDeliveriesProcessor(store ports.LedgerStore, logger *slog.Logger) *DeliveriesProcessor {
	return &DeliveriesProcessor{
		store:  store,
		logger: logger.With(slog.String("processor", "deliveries")),
	}
}

// CheckOverdue scans recent delivery sales and flags ones outstanding for
// five days or more. Scheduled daily; the overdue flag itself is derived,
// never stored.
func (p *DeliveriesProcessor) CheckOverdue(ctx context.Context, _ *asynq.Task) error {
	now := time.Now()

	// Anything older than 60 days is stale enough to ignore here.
	sales, _, err := p.store.ListSales(ctx, ports.SaleQuery{
		From:  now.AddDate(0, 0, -60),
		Limit: 500,
	})
	if err != nil {
		return fmt.Errorf("failed to list recent sales: %w", err)
	}

	overdue := 0
	for i := range sales {
		if !sales[i].IsOverdue(now) {
			continue
		}
		overdue++
		p.logger.WarnContext(ctx, "delivery overdue",
			slog.String("sale_id", sales[i].ID.String()),
			slog.String("store_id", sales[i].StoreID.String()),
			slog.Int64("invoice_number", sales[i].InvoiceNumber),
			slog.String("status", string(sales[i].Delivery.Status)),
			slog.Duration("outstanding", now.Sub(sales[i].CreatedAt)))
	}

	p.logger.InfoContext(ctx, "overdue delivery check completed",
		slog.Int("scanned", len(sales)),
		slog.Int("overdue", overdue))
	return nil
}
