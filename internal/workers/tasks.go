// internal/workers/tasks.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	redis_a "github.com/kobopos/ledger-be/internal/adapters/redis_adapter"
	"github.com/kobopos/ledger-be/internal/core/domain"
	"github.com/kobopos/ledger-be/internal/core/ports"
)

// Task type names routed through asynq.
const (
	TaskLowStock     = "alerts:low_stock"
	TaskOverdueCheck = "deliveries:check_overdue"
)

// alertDedupTTL suppresses repeat low-stock alerts for the same product
// until the guard key expires or the product is restocked.
const alertDedupTTL = 6 * time.Hour

// LowStockPayload is the task payload for a low-stock alert.
type LowStockPayload struct {
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
}

// Publisher enqueues alert tasks onto asynq. It deduplicates per product
// through the cache so one restock-worthy event does not flood the queue.
type Publisher struct {
	client *asynq.Client
	cache  ports.CacheRepository
	logger *slog.Logger
}

// Statically assert that *Publisher implements the AlertPublisher interface.
var _ ports.AlertPublisher = (*Publisher)(nil)

// NewPublisher creates an alert publisher. cache may be nil; dedup is then
// skipped and every signal enqueues a task.
func NewPublisher(client *asynq.Client, cache ports.CacheRepository, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		cache:  cache,
		logger: logger.With(slog.String("component", "alert_publisher")),
	}
}

// PublishLowStock enqueues a low-stock task for the given level.
func (p *Publisher) PublishLowStock(ctx context.Context, level domain.StockLevel) error {
	if p.cache != nil {
		key := redis_a.BuildKey(redis_a.PrefixAlert, "low_stock", level.ProductID.String())
		fresh, err := p.cache.SetNX(ctx, key, level.Quantity, alertDedupTTL)
		if err != nil {
			p.logger.WarnContext(ctx, "alert dedup check failed",
				slog.String("key", key),
				slog.Any("error", err))
		} else if !fresh {
			return nil
		}
	}

	payload, err := json.Marshal(LowStockPayload{
		ProductID: level.ProductID.String(),
		StoreID:   level.StoreID.String(),
		Name:      level.Name,
		Quantity:  level.Quantity,
		Threshold: level.Threshold,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal low stock payload: %w", err)
	}

	task := asynq.NewTask(TaskLowStock, payload)
	if _, err := p.client.EnqueueContext(ctx, task, asynq.Queue("alerts"), asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("failed to enqueue low stock task: %w", err)
	}

	p.logger.DebugContext(ctx, "low stock alert enqueued",
		slog.String("product_id", level.ProductID.String()),
		slog.Int("quantity", level.Quantity))
	return nil
}
