// internal/workers/dialogue/route-message/handler.go
package routemessage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"directory-assistant/internal/common/camunda"
	apperrors "directory-assistant/internal/common/errors"
	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/common/metrics"
	"directory-assistant/internal/common/observability"
	"directory-assistant/internal/common/validation"
	"directory-assistant/internal/models"
	messagelog "directory-assistant/internal/workers/dialogue/message-log"
	leadrepository "directory-assistant/internal/workers/leads/lead-repository"
	notifylead "directory-assistant/internal/workers/leads/notify-lead"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "route-message"
)

var (
	ErrMissingConversation = errors.New("MISSING_CONVERSATION_ID")
	ErrEmptyMessage        = errors.New("EMPTY_MESSAGE")
)

type Classifier interface {
	Classify(ctx context.Context, conversationID, text string) models.Intent
}

type Searcher interface {
	Search(ctx context.Context, q models.Query) (*models.SearchResult, error)
}

// Catalog is the part of the internal directory the commands and intents read.
type Catalog interface {
	NearbyBusinesses(ctx context.Context, loc models.Location, limit int) ([]models.Business, error)
	SearchProducts(ctx context.Context, term string, limit int) ([]models.Product, error)
	SupplierPrices(ctx context.Context, term string, limit int) ([]models.SupplierPrice, error)
	Categories(ctx context.Context) ([]models.CategoryCount, error)
}

type Chat interface {
	Reply(ctx context.Context, conversationID, text string) string
}

type History interface {
	Clear(id string)
	ActiveConversations() int
}

type FollowUp interface {
	FollowUp(ctx context.Context, lead *models.Lead) *notifylead.Output
}

// Dependencies are the collaborators of the router. FollowUp, Messages and
// Metrics are optional.
type Dependencies struct {
	Classifier Classifier
	Search     Searcher
	Catalog    Catalog
	Chat       Chat
	History    History
	Leads      leadrepository.Repository
	Messages   messagelog.Log
	FollowUp   FollowUp
	Metrics    *observability.Observability
}

type intentHandler func(ctx context.Context, in *Input, intent models.Intent) string

// Handler routes one inbound message to a reply. Messages of the same
// conversation are handled one at a time.
type Handler struct {
	config     *Config
	classifier Classifier
	search     Searcher
	catalog    Catalog
	chat       Chat
	history    History
	leads      leadrepository.Repository
	messages   messagelog.Log
	followUp   FollowUp
	obs        *observability.Observability
	validator  *validation.LeadValidator
	intents    map[models.IntentType]intentHandler
	commands   map[string]commandHandler
	locks      *keyedMutex
	pending    *pendingConsent
	wg         sync.WaitGroup
	now        func() time.Time
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, deps Dependencies, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{"taskType": TaskType})
	h := &Handler{
		config:     config,
		classifier: deps.Classifier,
		search:     deps.Search,
		catalog:    deps.Catalog,
		chat:       deps.Chat,
		history:    deps.History,
		leads:      deps.Leads,
		messages:   deps.Messages,
		followUp:   deps.FollowUp,
		obs:        deps.Metrics,
		validator:  validation.NewLeadValidator(),
		locks:      newKeyedMutex(),
		pending:    newPendingConsent(config.ConsentTTL),
		now:        time.Now,
		logger:     log,
		errHandler: apperrors.NewErrorHandler(log),
	}
	h.intents = map[models.IntentType]intentHandler{
		models.IntentProductSearch:  h.handleProductSearch,
		models.IntentBusinessSearch: h.handleBusinessSearch,
		models.IntentComparePrices:  h.handleComparePrices,
		models.IntentLeadCapture:    h.handleLeadCapture,
		models.IntentGeneralQuery:   h.handleGeneralQuery,
	}
	h.commands = h.commandTable()
	return h
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
	output, err := h.execute(ctx, &input)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.ErrCodeInvalidInput)).Inc()
		h.obs.RecordJobProcessed(ctx, TaskType, "failed")
		h.errHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(err.Error()))
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	camunda.CompleteJob(client, job, output, h.logger)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.ConversationID) == "" {
		return nil, ErrMissingConversation
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	in := &Input{ConversationID: input.ConversationID, Text: text, UserName: input.UserName}

	unlock := h.locks.Lock(in.ConversationID)
	defer unlock()

	start := h.now()
	exchange := h.route(ctx, in)
	h.obs.RecordMessageRouted(ctx, exchange.handler, h.now().Sub(start))
	metrics.MessagesRouted.WithLabelValues(exchange.handler).Inc()

	h.logExchange(&models.Exchange{
		ConversationID: in.ConversationID,
		UserName:       in.UserName,
		Text:           in.Text,
		Reply:          exchange.reply,
		Kind:           exchange.kind,
		Intent:         exchange.intent,
		CreatedAt:      start.UTC(),
	})

	return &Output{Reply: exchange.reply}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// Route returns the reply for text, or "" when the conversation id or the text
// is empty.
func (h *Handler) Route(ctx context.Context, conversationID, text string) string {
	out, err := h.execute(ctx, &Input{ConversationID: conversationID, Text: text})
	if err != nil {
		h.logger.Warn("message not routed", map[string]interface{}{
			"conversationId": conversationID,
			"error":          err.Error(),
		})
		return ""
	}
	return out.Reply
}

// Wait blocks until detached exchange logging and lead follow-ups finish.
func (h *Handler) Wait() {
	h.wg.Wait()
}

type routed struct {
	reply   string
	kind    models.ExchangeKind
	intent  models.IntentType
	handler string
}

func (h *Handler) route(ctx context.Context, in *Input) routed {
	if strings.HasPrefix(in.Text, "/") {
		return routed{
			reply:   h.handleCommand(ctx, in),
			kind:    models.ExchangeCommand,
			handler: "command",
		}
	}

	if reply, ok := h.handleConsentReply(in); ok {
		return routed{
			reply:   reply,
			kind:    models.ExchangeMessage,
			intent:  models.IntentLeadCapture,
			handler: "consent_declined",
		}
	}

	intent := h.classifier.Classify(ctx, in.ConversationID, in.Text)
	effective := intent.Type
	if intent.Confidence <= h.config.ConfidenceThreshold {
		effective = models.IntentGeneralQuery
	}

	handle, ok := h.intents[effective]
	if !ok {
		effective = models.IntentGeneralQuery
		handle = h.intents[effective]
	}

	h.logger.Debug("routing message", map[string]interface{}{
		"conversationId": in.ConversationID,
		"intent":         intent.Type,
		"confidence":     intent.Confidence,
		"routedTo":       effective,
	})

	return routed{
		reply:   handle(ctx, in, intent),
		kind:    models.ExchangeMessage,
		intent:  effective,
		handler: strings.ToLower(string(effective)),
	}
}

func (h *Handler) handleGeneralQuery(ctx context.Context, in *Input, _ models.Intent) string {
	return h.chat.Reply(ctx, in.ConversationID, in.Text)
}

func (h *Handler) handleBusinessSearch(ctx context.Context, in *Input, intent models.Intent) string {
	term := strings.TrimSpace(intent.SearchTerm)
	if term == "" {
		return replyMissingBusinessTerm
	}

	result, err := h.search.Search(ctx, models.NewQuery(term, h.config.defaultLocation()))
	if err != nil {
		stdErr := apperrors.NewRetrievalFailedError("hybrid", err)
		h.logger.Error("business search failed", map[string]interface{}{
			"conversationId": in.ConversationID,
			"searchTerm":     term,
			"errorCode":      stdErr.Code,
			"error":          err.Error(),
		})
		return replySearchFailed
	}
	if result.Empty() {
		return formatNoResults(term)
	}
	return formatSearchResult(term, result, h.config.MaxInternalRows, h.config.MaxExternalRows)
}

func (h *Handler) handleProductSearch(ctx context.Context, in *Input, intent models.Intent) string {
	term := strings.TrimSpace(intent.SearchTerm)
	if term == "" {
		return replyMissingProductTerm
	}

	products, err := h.catalog.SearchProducts(ctx, term, h.config.MaxProducts*5)
	if err != nil {
		h.logger.Error("product search failed", map[string]interface{}{
			"conversationId": in.ConversationID,
			"searchTerm":     term,
			"error":          err.Error(),
		})
		return replyProductsFailed
	}
	if len(products) == 0 {
		h.logger.Debug("no catalog products, falling back to business search", map[string]interface{}{
			"searchTerm": term,
		})
		return h.handleBusinessSearch(ctx, in, intent)
	}
	return formatProducts(term, products, h.config.MaxProducts)
}

func (h *Handler) handleComparePrices(ctx context.Context, in *Input, intent models.Intent) string {
	term := strings.TrimSpace(intent.SearchTerm)
	if term == "" {
		return replyMissingPriceTerm
	}

	prices, err := h.catalog.SupplierPrices(ctx, term, h.config.MaxPrices)
	if err != nil {
		h.logger.Error("price comparison failed", map[string]interface{}{
			"conversationId": in.ConversationID,
			"searchTerm":     term,
			"error":          err.Error(),
		})
		return replyPricesFailed
	}
	if len(prices) == 0 {
		return fmt.Sprintf("❌ No encontré proveedores para '%s'.", term)
	}

	sortByPrice(prices)
	return formatPriceComparison(term, prices)
}

func (h *Handler) logExchange(exchange *models.Exchange) {
	if h.messages == nil {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), h.config.LogTimeout)
		defer cancel()

		if err := h.messages.SaveExchange(ctx, exchange); err != nil {
			stdErr := apperrors.NewInteractionLogFailedError(err)
			h.logger.Warn("exchange not logged", map[string]interface{}{
				"conversationId": exchange.ConversationID,
				"errorCode":      stdErr.Code,
				"error":          err.Error(),
			})
		}
	}()
}
