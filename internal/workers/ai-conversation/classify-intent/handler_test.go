package classifyintent

import (
	"context"
	"errors"
	"testing"
	"time"

	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/models"
	chatcompletion "directory-assistant/internal/workers/ai-conversation/chat-completion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	content string
	err     error
	last    *chatcompletion.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req *chatcompletion.Request) (*chatcompletion.Response, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &chatcompletion.Response{Content: f.content}, nil
}

func createTestConfig() *Config {
	return &Config{
		Temperature: 0.1,
		MaxTokens:   150,
		TopP:        1.0,
		Timeout:     time.Second,
	}
}

// ==========================================
// Parse
// ==========================================

func TestParse_Valid(t *testing.T) {
	result := Parse(`{"intent": "BUSINESS_SEARCH", "searchTerm": " ferreterías ", "confidence": 0.98}`)

	require.True(t, result.OK())
	assert.Equal(t, models.IntentBusinessSearch, result.Intent.Type)
	assert.Equal(t, "ferreterías", result.Intent.SearchTerm)
	assert.Equal(t, 0.98, result.Intent.Confidence)
	assert.Nil(t, result.Intent.Lead)
}

func TestParse_LeadFields(t *testing.T) {
	result := Parse(`{"intent": "LEAD_CAPTURE", "searchTerm": null, "confidence": 0.95,
		"hasConsent": true, "firstName": "Juan", "lastName": "Pérez", "phone": "3001234567"}`)

	require.True(t, result.OK())
	require.NotNil(t, result.Intent.Lead)
	assert.True(t, result.Intent.Lead.HasConsent)
	assert.Equal(t, "Juan", result.Intent.Lead.FirstName)
	assert.Equal(t, "Pérez", result.Intent.Lead.LastName)
	assert.Equal(t, "3001234567", result.Intent.Lead.Phone)
	assert.Empty(t, result.Intent.Lead.Email)
}

func TestParse_LeadWithoutConsentField(t *testing.T) {
	result := Parse(`{"intent": "LEAD_CAPTURE", "confidence": 0.9}`)

	require.True(t, result.OK())
	assert.False(t, result.Intent.Lead.HasConsent)
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"prose", "claro, aquí está"},
		{"leading prose", `Respuesta: {"intent": "GENERAL_QUERY", "confidence": 1}`},
		{"trailing prose", `{"intent": "GENERAL_QUERY", "confidence": 1} gracias`},
		{"two objects", `{"intent": "GENERAL_QUERY", "confidence": 1}{"intent": "GENERAL_QUERY", "confidence": 1}`},
		{"code fence", "```json\n{\"intent\": \"GENERAL_QUERY\", \"confidence\": 1}\n```"},
		{"array", `[{"intent": "GENERAL_QUERY", "confidence": 1}]`},
		{"unknown label", `{"intent": "ORDER_FOOD", "confidence": 0.9}`},
		{"lower-case label", `{"intent": "business_search", "confidence": 0.9}`},
		{"missing confidence", `{"intent": "GENERAL_QUERY"}`},
		{"confidence out of range", `{"intent": "GENERAL_QUERY", "confidence": 1.5}`},
		{"confidence as string", `{"intent": "GENERAL_QUERY", "confidence": "high"}`},
		{"truncated", `{"intent": "GENERAL_QUERY", "confid`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.content)

			assert.False(t, result.OK())
			assert.ErrorIs(t, result.Err, ErrMalformedIntent)
			assert.Equal(t, models.DefaultIntent(), result.IntentOrDefault())
		})
	}
}

// ==========================================
// Classify
// ==========================================

func TestClassify_Success(t *testing.T) {
	completer := &fakeCompleter{content: `{"intent": "PRODUCT_SEARCH", "searchTerm": "cafe", "confidence": 0.9}`}
	h := NewHandler(createTestConfig(), completer, logger.NewNoOpLogger())

	intent := h.Classify(context.Background(), "chat-1", "quiero encontrar cafe")

	assert.Equal(t, models.IntentProductSearch, intent.Type)
	assert.Equal(t, "cafe", intent.SearchTerm)

	require.NotNil(t, completer.last)
	assert.Equal(t, "intent", completer.last.Purpose)
	assert.True(t, completer.last.JSONResponse)
	assert.Equal(t, 150, completer.last.MaxTokens)
	assert.Equal(t, 0.1, completer.last.Temperature)
	require.Len(t, completer.last.Messages, 2)
	assert.Equal(t, models.RoleSystem, completer.last.Messages[0].Role)
	assert.Contains(t, completer.last.Messages[0].Content, "Respond only with the JSON object.")
	assert.Equal(t, "quiero encontrar cafe", completer.last.Messages[1].Content)
}

func TestClassify_FailuresYieldDefault(t *testing.T) {
	tests := []struct {
		name      string
		completer *fakeCompleter
	}{
		{"transport", &fakeCompleter{err: errors.New("connection refused")}},
		{"timeout", &fakeCompleter{err: chatcompletion.ErrCompletionTimeout}},
		{"not configured", &fakeCompleter{err: chatcompletion.ErrCompletionNotConfigured}},
		{"malformed body", &fakeCompleter{content: "no sé"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), tt.completer, logger.NewNoOpLogger())

			intent := h.Classify(context.Background(), "chat-1", "hola")

			assert.Equal(t, models.IntentGeneralQuery, intent.Type)
			assert.Zero(t, intent.Confidence)
		})
	}
}

func TestExecute_ReportsFallback(t *testing.T) {
	h := NewHandler(createTestConfig(), &fakeCompleter{err: errors.New("boom")}, logger.NewNoOpLogger())

	out := h.Execute(context.Background(), &Input{ConversationID: "c", Text: "hola"})

	assert.True(t, out.Fallback)
	assert.Equal(t, models.DefaultIntent(), out.Intent)
}

func BenchmarkParse(b *testing.B) {
	content := `{"intent": "BUSINESS_SEARCH", "searchTerm": "panaderías", "confidence": 0.98}`
	for i := 0; i < b.N; i++ {
		Parse(content)
	}
}
