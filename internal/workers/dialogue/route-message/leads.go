// internal/workers/dialogue/route-message/leads.go
package routemessage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode"

	"directory-assistant/internal/common/metrics"
	"directory-assistant/internal/common/textnorm"
	"directory-assistant/internal/common/validation"
	"directory-assistant/internal/models"
	leadrepository "directory-assistant/internal/workers/leads/lead-repository"

	"github.com/google/uuid"
)

// LeadState is where a conversation stands in lead capture.
type LeadState int

const (
	LeadStateNone LeadState = iota
	LeadStateAwaitingConsent
	LeadStateCaptured
)

func (s LeadState) String() string {
	switch s {
	case LeadStateAwaitingConsent:
		return "awaiting_consent"
	case LeadStateCaptured:
		return "captured"
	default:
		return "none"
	}
}

const defaultConsentTTL = 24 * time.Hour

// pendingConsent tracks conversations that were asked for consent and have not
// answered yet. Requests older than ttl count as abandoned and are dropped.
type pendingConsent struct {
	mu  sync.Mutex
	ttl time.Duration
	ids map[string]time.Time
}

func newPendingConsent(ttl time.Duration) *pendingConsent {
	if ttl <= 0 {
		ttl = defaultConsentTTL
	}
	return &pendingConsent{ttl: ttl, ids: make(map[string]time.Time)}
}

// add records a request at and drops every abandoned one, which keeps the map
// bounded by the requests made within ttl.
func (p *pendingConsent) add(id string, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for other, asked := range p.ids {
		if p.expired(asked, at) {
			delete(p.ids, other)
		}
	}
	p.ids[id] = at
}

func (p *pendingConsent) remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.ids, id)
}

func (p *pendingConsent) has(id string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	asked, ok := p.ids[id]
	if !ok {
		return false
	}
	if p.expired(asked, now) {
		delete(p.ids, id)
		return false
	}
	return true
}

func (p *pendingConsent) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ids)
}

func (p *pendingConsent) expired(asked, now time.Time) bool {
	return now.Sub(asked) >= p.ttl
}

// LeadState reports the capture state of a conversation.
func (h *Handler) LeadState(ctx context.Context, conversationID string) (LeadState, error) {
	_, err := h.leads.FindByConversation(ctx, conversationID)
	switch {
	case err == nil:
		return LeadStateCaptured, nil
	case !errors.Is(err, leadrepository.ErrLeadNotFound):
		return LeadStateNone, err
	case h.pending.has(conversationID, h.now()):
		return LeadStateAwaitingConsent, nil
	default:
		return LeadStateNone, nil
	}
}

func (h *Handler) handleLeadCapture(ctx context.Context, in *Input, intent models.Intent) string {
	existing, err := h.leads.FindByConversation(ctx, in.ConversationID)
	if err == nil {
		h.pending.remove(in.ConversationID)
		metrics.LeadsCaptured.WithLabelValues("existing").Inc()
		return formatExistingLead(existing)
	}
	if !errors.Is(err, leadrepository.ErrLeadNotFound) {
		h.logger.Error("lead lookup failed", map[string]interface{}{
			"conversationId": in.ConversationID,
			"error":          err.Error(),
		})
		metrics.LeadsCaptured.WithLabelValues("error").Inc()
		return replyLeadFailed
	}

	fields := intent.Lead
	if fields == nil || !fields.HasConsent {
		h.pending.add(in.ConversationID, h.now())
		metrics.LeadsCaptured.WithLabelValues("consent_requested").Inc()
		return formatConsentRequest(in.UserName)
	}

	if strings.TrimSpace(fields.FirstName) == "" {
		h.pending.add(in.ConversationID, h.now())
		metrics.LeadsCaptured.WithLabelValues("name_missing").Inc()
		return replyNameMissing
	}

	consentAt := h.now().UTC()
	lead := &models.Lead{
		ID:             uuid.NewString(),
		ConversationID: in.ConversationID,
		Source:         h.config.Channel,
		Status:         models.LeadStatusNew,
		FirstName:      fields.FirstName,
		LastName:       fields.LastName,
		Phone:          fields.Phone,
		Email:          fields.Email,
		City:           fields.City,
		ConsentGiven:   true,
		ConsentDate:    &consentAt,
		CRMSyncStatus:  models.CRMSyncPending,
	}

	if err := h.validator.Validate(lead); err != nil {
		var verr *validation.LeadValidationError
		if errors.As(err, &verr) {
			h.pending.add(in.ConversationID, consentAt)
			metrics.LeadsCaptured.WithLabelValues("invalid").Inc()
			h.logger.Info("lead rejected by validation", map[string]interface{}{
				"conversationId": in.ConversationID,
				"errorCode":      verr.StandardError().Code,
				"field":          verr.Field,
				"rule":           verr.Rule,
			})
			return formatValidationPrompt(verr.Field, verr.Rule, lead)
		}
		h.logger.Error("lead validation errored", map[string]interface{}{
			"conversationId": in.ConversationID,
			"error":          err.Error(),
		})
		return replyLeadFailed
	}

	if err := h.leads.Create(ctx, lead); err != nil {
		if errors.Is(err, leadrepository.ErrLeadExists) {
			if existing, ferr := h.leads.FindByConversation(ctx, in.ConversationID); ferr == nil {
				h.pending.remove(in.ConversationID)
				return formatExistingLead(existing)
			}
		}
		h.logger.Error("lead create failed", map[string]interface{}{
			"conversationId": in.ConversationID,
			"error":          err.Error(),
		})
		metrics.LeadsCaptured.WithLabelValues("error").Inc()
		return replyLeadFailed
	}

	h.pending.remove(in.ConversationID)
	metrics.LeadsCaptured.WithLabelValues("captured").Inc()
	h.logger.Info("lead captured", map[string]interface{}{
		"conversationId": in.ConversationID,
		"leadId":         lead.ID,
	})

	h.startFollowUp(lead)
	return formatLeadCaptured(lead)
}

// handleConsentReply answers a refusal while consent is pending. It reports
// false when text is not a refusal.
func (h *Handler) handleConsentReply(in *Input) (string, bool) {
	if !h.pending.has(in.ConversationID, h.now()) || !isRefusal(in.Text) {
		return "", false
	}
	h.pending.remove(in.ConversationID)
	metrics.LeadsCaptured.WithLabelValues("declined").Inc()
	return replyConsentDeclined, true
}

// refusals are the whole replies that decline consent. A longer message that
// merely starts with "no" is left to the classifier.
var refusals = map[string]bool{
	"no":                true,
	"nop":               true,
	"nope":              true,
	"cancelar":          true,
	"cancela":           true,
	"no gracias":        true,
	"no muchas gracias": true,
	"no acepto":         true,
	"no quiero":         true,
	"no deseo":          true,
	"no por ahora":      true,
	"no no":             true,
}

func isRefusal(text string) bool {
	fields := strings.FieldsFunc(textnorm.Fold(text), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if len(fields) == 0 {
		return false
	}
	return refusals[strings.Join(fields, " ")]
}

func (h *Handler) startFollowUp(lead *models.Lead) {
	if h.followUp == nil {
		return
	}
	snapshot := *lead
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), h.config.FollowUpTimeout)
		defer cancel()
		h.followUp.FollowUp(ctx, &snapshot)
	}()
}
