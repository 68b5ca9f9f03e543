// internal/models/cache.go
package models

import "time"

// DefaultCacheTTLSeconds is the lifetime of a cached external row.
const DefaultCacheTTLSeconds = 86400

// ExternalPlace is one row returned by an external places provider.
type ExternalPlace struct {
	Source        string   `json:"source"`
	SourcePlaceID string   `json:"sourcePlaceId"`
	BusinessName  string   `json:"businessName"`
	Category      string   `json:"category,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	Address       string   `json:"address,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Confidence    float64  `json:"confidence"`
}

// CacheEntry is a persisted external row grouped under a query hash.
type CacheEntry struct {
	ID        int64     `json:"id,omitempty" db:"id"`
	QueryHash string    `json:"queryHash" db:"query_hash"`
	FetchedAt time.Time `json:"fetchedAt" db:"fetched_at"`
	TTL       int       `json:"ttl" db:"ttl"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	ExternalPlace
}

// NewCacheEntry stamps place with the key, fetch time and TTL.
func NewCacheEntry(key string, place ExternalPlace, fetchedAt time.Time, ttl time.Duration) CacheEntry {
	seconds := int(ttl / time.Second)
	if seconds <= 0 {
		seconds = DefaultCacheTTLSeconds
	}
	return CacheEntry{
		QueryHash:     key,
		FetchedAt:     fetchedAt,
		TTL:           seconds,
		CreatedAt:     fetchedAt,
		ExternalPlace: place,
	}
}

// TTLDuration returns the entry lifetime, falling back to the default for unset rows.
func (e CacheEntry) TTLDuration() time.Duration {
	if e.TTL <= 0 {
		return DefaultCacheTTLSeconds * time.Second
	}
	return time.Duration(e.TTL) * time.Second
}

// ValidAt reports whether now - FetchedAt < TTL.
func (e CacheEntry) ValidAt(now time.Time) bool {
	return now.Sub(e.FetchedAt) < e.TTLDuration()
}

// ExpiresAt is the first instant at which the entry is no longer valid.
func (e CacheEntry) ExpiresAt() time.Time {
	return e.FetchedAt.Add(e.TTLDuration())
}
