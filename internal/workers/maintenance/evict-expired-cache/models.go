// internal/workers/maintenance/evict-expired-cache/models.go
package evictexpiredcache

type Output struct {
	Evicted int64 `json:"evicted"`
}
