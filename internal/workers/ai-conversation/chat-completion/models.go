// internal/workers/ai-conversation/chat-completion/models.go
package chatcompletion

import (
	"context"

	"directory-assistant/internal/models"
)

// Completer sends one non-streaming chat completion.
type Completer interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

type Request struct {
	// Purpose labels token metrics, e.g. "intent" or "chat".
	Purpose      string
	Messages     []models.ConversationMessage
	Temperature  float64
	MaxTokens    int
	TopP         float64
	JSONResponse bool
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// wire format of the chat/completions endpoint

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []wireMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	TopP           float64         `json:"top_p"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}
