// internal/workers/search/external-places/config.go
package externalplaces

import "time"

type Config struct {
	BaseURL    string
	APIKey     string
	Language   string
	MaxResults int
	// Confidence is stamped on every provider row.
	Confidence float64
	Timeout    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		BaseURL:    "https://places.googleapis.com/v1",
		Language:   "es",
		MaxResults: 10,
		Confidence: 0.8,
		Timeout:    10 * time.Second,
	}
}
