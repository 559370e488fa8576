// internal/core/ports/cache.go
package ports

import (
	"context"
	"time"
)

// CacheRepository defines the interface for cache operations. The ledger
// uses it for read-side caching of store settings and for deduplicating
// low-stock alerts.
type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)

	// GetOrSet returns the cached value or populates it from fetch.
	GetOrSet(ctx context.Context, key string, dest interface{},
		fetch func() (interface{}, error), ttl time.Duration) error

	// SetNX sets the key only if absent; used as a TTL-based dedup guard.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	Ping(ctx context.Context) error
	Flush(ctx context.Context) error
}
