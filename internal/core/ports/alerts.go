// internal/core/ports/alerts.go
package ports

import (
	"context"

	"github.com/kobopos/ledger-be/internal/core/domain"
)

// AlertPublisher receives low-stock/out-of-stock signals after a sale
// commits. Publishing is best-effort: a publish failure never fails the
// sale that triggered it.
type AlertPublisher interface {
	PublishLowStock(ctx context.Context, level domain.StockLevel) error
}
