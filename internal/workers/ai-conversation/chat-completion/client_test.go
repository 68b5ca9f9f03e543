package chatcompletion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig(baseURL string) *Config {
	return &Config{
		Provider:       ProviderOpenAI,
		BaseURL:        baseURL,
		APIKey:         "test-key",
		Model:          "test-model",
		Timeout:        2 * time.Second,
		ConnectTimeout: time.Second,
		MaxRetries:     2,
	}
}

func testRequest() *Request {
	return &Request{
		Purpose: "intent",
		Messages: []models.ConversationMessage{
			{Role: models.RoleSystem, Content: "eres un clasificador"},
			{Role: models.RoleUser, Content: "busco una ferretería"},
		},
		Temperature:  0.1,
		MaxTokens:    150,
		TopP:         0.9,
		JSONResponse: true,
	}
}

const completionBody = `{
  "model": "test-model",
  "choices": [{"message": {"role": "assistant", "content": "{\"intent\":\"BUSINESS_SEARCH\"}"}}],
  "usage": {"prompt_tokens": 42, "completion_tokens": 7, "total_tokens": 49}
}`

// ==========================================
// HTTP client
// ==========================================

func TestComplete_Success(t *testing.T) {
	var body completionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(completionBody))
	}))
	defer server.Close()

	c := NewHTTPClient(createTestConfig(server.URL+"/"), logger.NewNoOpLogger())

	resp, err := c.Complete(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, `{"intent":"BUSINESS_SEARCH"}`, resp.Content)
	assert.Equal(t, 42, resp.Usage.PromptTokens)
	assert.Equal(t, 7, resp.Usage.CompletionTokens)

	assert.Equal(t, "test-model", body.Model)
	assert.False(t, body.Stream)
	assert.Equal(t, 150, body.MaxTokens)
	require.NotNil(t, body.ResponseFormat)
	assert.Equal(t, "json_object", body.ResponseFormat.Type)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
}

func TestComplete_PlainTextOmitsResponseFormat(t *testing.T) {
	var raw map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(completionBody))
	}))
	defer server.Close()

	req := testRequest()
	req.JSONResponse = false

	_, err := NewHTTPClient(createTestConfig(server.URL), logger.NewNoOpLogger()).Complete(context.Background(), req)

	require.NoError(t, err)
	_, present := raw["response_format"]
	assert.False(t, present)
}

func TestComplete_NotConfigured(t *testing.T) {
	cfg := createTestConfig("http://127.0.0.1:1")
	cfg.APIKey = ""

	_, err := NewHTTPClient(cfg, logger.NewNoOpLogger()).Complete(context.Background(), testRequest())

	assert.ErrorIs(t, err, ErrCompletionNotConfigured)
}

func TestComplete_RetriesServerErrors(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(completionBody))
	}))
	defer server.Close()

	resp, err := NewHTTPClient(createTestConfig(server.URL), logger.NewNoOpLogger()).Complete(context.Background(), testRequest())

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Content)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestComplete_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewHTTPClient(createTestConfig(server.URL), logger.NewNoOpLogger()).Complete(context.Background(), testRequest())

	assert.ErrorIs(t, err, ErrCompletionFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestComplete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	_, err := NewHTTPClient(createTestConfig(server.URL), logger.NewNoOpLogger()).Complete(context.Background(), testRequest())

	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestComplete_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPClient(createTestConfig(server.URL), logger.NewNoOpLogger()).Complete(ctx, testRequest())

	assert.ErrorIs(t, err, ErrCompletionTimeout)
}

func TestRetryable(t *testing.T) {
	assert.False(t, retryable(context.Canceled))
	assert.True(t, retryable(errors.New("connection reset by peer")))
}

// ==========================================
// Factory
// ==========================================

func TestNew_SelectsBackend(t *testing.T) {
	c, err := New(context.Background(), createTestConfig("http://localhost"), logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.IsType(t, &HTTPClient{}, c)

	cfg := createTestConfig("")
	cfg.Provider = ProviderGemini
	cfg.APIKey = ""
	_, err = New(context.Background(), cfg, logger.NewNoOpLogger())
	assert.ErrorIs(t, err, ErrCompletionNotConfigured)

	cfg.Provider = "bogus"
	_, err = New(context.Background(), cfg, logger.NewNoOpLogger())
	assert.Error(t, err)
}
