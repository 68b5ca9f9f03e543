// internal/workers/ai-conversation/chat-completion/client.go
package chatcompletion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"directory-assistant/internal/common/breaker"
	httpclient "directory-assistant/internal/common/http"
	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/common/metrics"
)

var (
	ErrCompletionFailed        = errors.New("COMPLETION_FAILED")
	ErrCompletionTimeout       = errors.New("COMPLETION_TIMEOUT")
	ErrCompletionNotConfigured = errors.New("COMPLETION_NOT_CONFIGURED")
)

// HTTPClient talks to an OpenAI-compatible chat/completions endpoint.
type HTTPClient struct {
	config     *Config
	httpClient *httpclient.Client
	breaker    *breaker.Breaker
	logger     logger.Logger
}

func NewHTTPClient(config *Config, log logger.Logger) *HTTPClient {
	timeouts := httpclient.DefaultTimeouts(config.Timeout)
	if config.ConnectTimeout > 0 {
		timeouts.Connect = config.ConnectTimeout
	}
	return &HTTPClient{
		config:     config,
		httpClient: httpclient.NewClientWithTimeouts(timeouts),
		breaker:    breaker.New(breaker.DefaultConfig("completion"), isCompletionFailure, log),
		logger:     log.With(map[string]interface{}{"completionProvider": ProviderOpenAI}),
	}
}

func (c *HTTPClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(c.config.APIKey) == "" {
		return nil, ErrCompletionNotConfigured
	}

	body := &completionRequest{
		Model:       c.config.Model,
		Messages:    make([]wireMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Stream:      false,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.JSONResponse {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.config.APIKey}

	var (
		out     completionResponse
		lastErr error
	)
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ErrCompletionTimeout
			}
		}

		_, lastErr = breaker.Execute(c.breaker, func() (struct{}, error) {
			return struct{}{}, c.httpClient.DoJSON(ctx, http.MethodPost, url, headers, body, &out)
		})
		if lastErr == nil || !retryable(lastErr) {
			break
		}
		c.logger.Warn("completion attempt failed", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		})
	}

	if lastErr != nil {
		if isTimeout(ctx, lastErr) {
			return nil, ErrCompletionTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, lastErr)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrCompletionFailed)
	}

	resp := &Response{
		Content: out.Choices[0].Message.Content,
		Model:   out.Model,
		Usage:   out.Usage,
	}
	recordUsage(c.logger, req.Purpose, resp)
	return resp, nil
}

func retryable(err error) bool {
	if errors.Is(err, breaker.ErrOpen) {
		return false
	}
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func isCompletionFailure(err error) bool {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return !errors.Is(err, context.Canceled)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func recordUsage(log logger.Logger, purpose string, resp *Response) {
	if purpose == "" {
		purpose = "chat"
	}
	metrics.CompletionTokens.WithLabelValues(purpose, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.CompletionTokens.WithLabelValues(purpose, "completion").Add(float64(resp.Usage.CompletionTokens))
	log.Debug("completion token usage", map[string]interface{}{
		"purpose":          purpose,
		"model":            resp.Model,
		"promptTokens":     resp.Usage.PromptTokens,
		"completionTokens": resp.Usage.CompletionTokens,
		"totalTokens":      resp.Usage.TotalTokens,
	})
}
