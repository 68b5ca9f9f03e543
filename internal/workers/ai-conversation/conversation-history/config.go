// internal/workers/ai-conversation/conversation-history/config.go
package conversationhistory

type Config struct {
	MaxMessages int
}

func LoadConfig() *Config {
	return &Config{MaxMessages: 20}
}
