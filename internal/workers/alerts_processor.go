// internal/workers/alerts_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// AlertProcessor handles stock alert tasks.
type AlertProcessor struct {
	logger *slog.Logger
}

// NewAlertProcessor creates a new alert processor
func NewAlertProcessor(logger *slog.Logger) *AlertProcessor {
	return &AlertProcessor{
		logger: logger.With(slog.String("processor", "alerts")),
	}
}

// HandleLowStock surfaces a low-stock signal. Today this is a structured
// log line that downstream log shipping turns into a notification.
func (p *AlertProcessor) HandleLowStock(ctx context.Context, t *asynq.Task) error {
	var payload LowStockPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	level := slog.LevelWarn
	msg := "product stock below threshold"
	if payload.Quantity == 0 {
		level = slog.LevelError
		msg = "product out of stock"
	}

	p.logger.Log(ctx, level, msg,
		slog.String("product_id", payload.ProductID),
		slog.String("store_id", payload.StoreID),
		slog.String("name", payload.Name),
		slog.Int("quantity", payload.Quantity),
		slog.Int("threshold", payload.Threshold))
	return nil
}
