// internal/workers/search/result-cache/store.go
package resultcache

import (
	"context"
	"time"

	"directory-assistant/internal/models"
)

// Store persists external rows under their query hash.
type Store interface {
	// FindValid returns the rows stored under key that are still valid at now.
	FindValid(ctx context.Context, key string, now time.Time) ([]models.CacheEntry, error)
	// SaveAll persists entries. Rows are immutable once written.
	SaveAll(ctx context.Context, entries []models.CacheEntry) error
	// EvictExpired deletes every row with fetched_at < now - ttl and returns how many went.
	EvictExpired(ctx context.Context, now time.Time) (int64, error)
}
