// internal/workers/search/result-cache/config.go
package resultcache

import (
	"time"

	"directory-assistant/internal/models"
)

type Config struct {
	TTL       time.Duration
	KeyPrefix string
}

func LoadConfig() *Config {
	return &Config{
		TTL:       models.DefaultCacheTTLSeconds * time.Second,
		KeyPrefix: "search:external:",
	}
}
