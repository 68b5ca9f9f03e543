// internal/workers/ai-conversation/classify-intent/handler.go
package classifyintent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"directory-assistant/internal/common/camunda"
	apperrors "directory-assistant/internal/common/errors"
	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/common/metrics"
	"directory-assistant/internal/models"
	chatcompletion "directory-assistant/internal/workers/ai-conversation/chat-completion"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "classify-intent"
	purpose  = "intent"
)

type Handler struct {
	config     *Config
	completer  chatcompletion.Completer
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, completer chatcompletion.Completer, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		completer:  completer,
		logger:     log,
		errHandler: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	start := time.Now()
	output := h.execute(ctx, &input)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()

	camunda.CompleteJob(client, job, output, h.logger)
}

func (h *Handler) execute(ctx context.Context, input *Input) *Output {
	result := h.classify(ctx, input.ConversationID, input.Text)
	return &Output{Intent: result.IntentOrDefault(), Fallback: !result.OK()}
}

func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	return h.execute(ctx, input)
}

// Classify never fails: any transport, status, timeout or parse problem yields
// models.DefaultIntent().
func (h *Handler) Classify(ctx context.Context, conversationID, text string) models.Intent {
	return h.classify(ctx, conversationID, text).IntentOrDefault()
}

func (h *Handler) classify(ctx context.Context, conversationID, text string) ParseResult {
	resp, err := h.completer.Complete(ctx, &chatcompletion.Request{
		Purpose: purpose,
		Messages: []models.ConversationMessage{
			{Role: models.RoleSystem, Content: systemPrompt},
			{Role: models.RoleUser, Content: text},
		},
		Temperature:  h.config.Temperature,
		MaxTokens:    h.config.MaxTokens,
		TopP:         h.config.TopP,
		JSONResponse: true,
	})
	if err != nil {
		return h.fallback(conversationID, ParseResult{Err: err})
	}

	result := Parse(resp.Content)
	if !result.OK() {
		return h.fallback(conversationID, result)
	}

	metrics.IntentsClassified.WithLabelValues(string(result.Intent.Type), "false").Inc()
	h.logger.Info("intent classified", map[string]interface{}{
		"conversationId": conversationID,
		"intent":         result.Intent.Type,
		"confidence":     result.Intent.Confidence,
		"searchTerm":     result.Intent.SearchTerm,
	})
	return result
}

func (h *Handler) fallback(conversationID string, result ParseResult) ParseResult {
	stdErr := apperrors.NewClassificationFailedError(result.Err)
	metrics.IntentsClassified.WithLabelValues(string(models.IntentGeneralQuery), "true").Inc()
	h.logger.Warn("intent classification failed, using default intent", map[string]interface{}{
		"conversationId": conversationID,
		"errorCode":      stdErr.Code,
		"error":          result.Err.Error(),
	})
	return result
}
