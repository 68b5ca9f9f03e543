package chatcompletion

import (
	"context"
	"errors"
	"testing"

	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGemini struct {
	resp     *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeGemini) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func geminiResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(text, genai.RoleModel)},
		},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     30,
			CandidatesTokenCount: 5,
			TotalTokenCount:      35,
		},
	}
}

func TestGemini_Complete(t *testing.T) {
	fake := &fakeGemini{resp: geminiResponse(" hola \n")}
	c := newGeminiClient(createTestConfig(""), fake, logger.NewNoOpLogger())

	req := testRequest()
	req.Messages = append(req.Messages, models.ConversationMessage{Role: models.RoleAssistant, Content: "claro"})

	resp, err := c.Complete(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "hola", resp.Content)
	assert.Equal(t, 30, resp.Usage.PromptTokens)
	assert.Equal(t, 5, resp.Usage.CompletionTokens)
	assert.Equal(t, "test-model", fake.model)

	require.Len(t, fake.contents, 2)
	assert.Equal(t, genai.RoleUser, fake.contents[0].Role)
	assert.Equal(t, genai.RoleModel, fake.contents[1].Role)
	require.NotNil(t, fake.config.SystemInstruction)
	assert.Equal(t, "eres un clasificador", fake.config.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)
	assert.Equal(t, int32(150), fake.config.MaxOutputTokens)
}

func TestGemini_Errors(t *testing.T) {
	c := newGeminiClient(createTestConfig(""), &fakeGemini{err: errors.New("quota")}, logger.NewNoOpLogger())
	_, err := c.Complete(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrCompletionFailed)

	c = newGeminiClient(createTestConfig(""), &fakeGemini{resp: &genai.GenerateContentResponse{}}, logger.NewNoOpLogger())
	_, err = c.Complete(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestToGenai_NoSystemMessage(t *testing.T) {
	contents, cfg := toGenai(&Request{
		Messages: []models.ConversationMessage{{Role: models.RoleUser, Content: "hola"}},
	})

	assert.Len(t, contents, 1)
	assert.Nil(t, cfg.SystemInstruction)
	assert.Empty(t, cfg.ResponseMIMEType)
	assert.Zero(t, cfg.MaxOutputTokens)
}
