// internal/workers/ai-conversation/classify-intent/config.go
package classifyintent

import "time"

type Config struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
	Timeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Temperature: 0.1,
		MaxTokens:   150,
		TopP:        1.0,
		Timeout:     60 * time.Second,
	}
}
