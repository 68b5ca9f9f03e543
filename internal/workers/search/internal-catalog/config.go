// internal/workers/search/internal-catalog/config.go
package internalcatalog

import "time"

type Config struct {
	// MaxResults bounds every business lookup.
	MaxResults    int
	DefaultRadius int // meters, used when a location carries none
	BusinessIndex string
	Timeout       time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxResults:    20,
		DefaultRadius: 3000,
		BusinessIndex: "businesses",
		Timeout:       5 * time.Second,
	}
}

func (c *Config) radius(meters int) int {
	if meters > 0 {
		return meters
	}
	return c.DefaultRadius
}
