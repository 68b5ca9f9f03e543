// internal/workers/ai-conversation/chat-completion/factory.go
package chatcompletion

import (
	"context"
	"fmt"

	"directory-assistant/internal/common/logger"
)

// New returns the Completer selected by config.Provider.
func New(ctx context.Context, config *Config, log logger.Logger) (Completer, error) {
	switch config.Provider {
	case "", ProviderOpenAI:
		return NewHTTPClient(config, log), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, config, log)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", config.Provider)
	}
}
