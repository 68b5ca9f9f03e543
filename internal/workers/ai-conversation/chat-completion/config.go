// internal/workers/ai-conversation/chat-completion/config.go
package chatcompletion

import "time"

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Provider       string
	BaseURL        string
	APIKey         string
	Model          string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	MaxRetries     int
}

func LoadConfig() *Config {
	return &Config{
		Provider:       ProviderOpenAI,
		BaseURL:        "https://api.x.ai/v1",
		Model:          "grok-3-mini",
		Timeout:        60 * time.Second,
		ConnectTimeout: 30 * time.Second,
		MaxRetries:     2,
	}
}
