// internal/workers/ai-conversation/general-chat/handler.go
package generalchat

import (
	"context"
	"strings"

	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/models"
	chatcompletion "directory-assistant/internal/workers/ai-conversation/chat-completion"
)

const (
	purpose    = "chat"
	echoPrefix = "Recibí tu mensaje: "
)

// History is the per-conversation message window used as chat context.
type History interface {
	Append(id string, role models.Role, content string)
	RequestWindow(id, systemPrompt string) []models.ConversationMessage
}

// Handler answers free-form messages with the chat model and the stored history.
type Handler struct {
	config    *Config
	history   History
	completer chatcompletion.Completer
	logger    logger.Logger
}

func NewHandler(config *Config, history History, completer chatcompletion.Completer, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		history:   history,
		completer: completer,
		logger:    log.With(map[string]interface{}{"component": "general-chat"}),
	}
}

// Reply records text in the history and returns the model's answer. On any
// failure it returns the echo reply and leaves the history without an answer.
func (h *Handler) Reply(ctx context.Context, conversationID, text string) string {
	h.history.Append(conversationID, models.RoleUser, text)

	resp, err := h.completer.Complete(ctx, &chatcompletion.Request{
		Purpose:     purpose,
		Messages:    h.history.RequestWindow(conversationID, h.config.SystemPrompt),
		Temperature: h.config.Temperature,
		MaxTokens:   h.config.MaxTokens,
		TopP:        h.config.TopP,
	})
	if err != nil {
		h.logger.Warn("chat completion failed, echoing message", map[string]interface{}{
			"conversationId": conversationID,
			"error":          err.Error(),
		})
		return Echo(text)
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		h.logger.Warn("chat completion returned empty content", map[string]interface{}{
			"conversationId": conversationID,
		})
		return Echo(text)
	}

	h.history.Append(conversationID, models.RoleAssistant, answer)
	return answer
}

// Echo is the deterministic fallback reply.
func Echo(text string) string {
	return echoPrefix + text
}
