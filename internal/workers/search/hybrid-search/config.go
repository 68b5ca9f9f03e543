// internal/workers/search/hybrid-search/config.go
package hybridsearch

import (
	"time"

	"directory-assistant/internal/models"
)

type Config struct {
	// InternalThreshold is the internal row count at which the external path is skipped.
	InternalThreshold int
	CacheTTL          time.Duration
	// DedupeInFlight shares one provider fetch between concurrent misses on a key.
	DedupeInFlight bool
	Timeout        time.Duration
}

func LoadConfig() *Config {
	return &Config{
		InternalThreshold: 3,
		CacheTTL:          models.DefaultCacheTTLSeconds * time.Second,
		DedupeInFlight:    true,
		Timeout:           30 * time.Second,
	}
}
