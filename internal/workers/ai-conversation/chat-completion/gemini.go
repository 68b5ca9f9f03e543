// internal/workers/ai-conversation/chat-completion/gemini.go
package chatcompletion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/models"

	"google.golang.org/genai"
)

type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient serves completions from the Gemini API.
type GeminiClient struct {
	config *Config
	models geminiModels
	logger logger.Logger
}

func NewGeminiClient(ctx context.Context, config *Config, log logger.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, ErrCompletionNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGeminiClient(config, client.Models, log), nil
}

func newGeminiClient(config *Config, m geminiModels, log logger.Logger) *GeminiClient {
	return &GeminiClient{
		config: config,
		models: m,
		logger: log.With(map[string]interface{}{"completionProvider": ProviderGemini}),
	}
}

func (c *GeminiClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	contents, genConfig := toGenai(req)

	resp, err := c.models.GenerateContent(ctx, c.config.Model, contents, genConfig)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrCompletionTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates in response", ErrCompletionFailed)
	}

	out := &Response{
		Content: strings.TrimSpace(resp.Text()),
		Model:   c.config.Model,
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	recordUsage(c.logger, req.Purpose, out)
	return out, nil
}

// toGenai moves system messages into the system instruction and maps the
// assistant role to the model role.
func toGenai(req *Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, m.Content)
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
		TopP:        genai.Ptr(float32(req.TopP)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), "")
	}
	if req.JSONResponse {
		cfg.ResponseMIMEType = "application/json"
	}
	return contents, cfg
}
