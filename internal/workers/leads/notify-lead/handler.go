// internal/workers/leads/notify-lead/handler.go
package notifylead

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"directory-assistant/internal/common/camunda"
	apperrors "directory-assistant/internal/common/errors"
	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/common/metrics"
	"directory-assistant/internal/common/zoho"
	"directory-assistant/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "notify-lead"
)

var ErrMissingLead = errors.New("MISSING_LEAD")

type CRM interface {
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
}

type EmailSender interface {
	SendText(ctx context.Context, to []string, subject, body string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, subject, message string) (string, error)
}

// SyncRecorder stores the CRM outcome on the lead.
type SyncRecorder interface {
	UpdateCRMSync(ctx context.Context, id, status, contactID string) error
}

// Handler runs the follow-up steps for a captured lead. A nil collaborator
// disables its step.
type Handler struct {
	config     *Config
	crm        CRM
	email      EmailSender
	sms        Publisher
	recorder   SyncRecorder
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, crm CRM, email EmailSender, sms Publisher, recorder SyncRecorder, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		crm:        crm,
		email:      email,
		sms:        sms,
		recorder:   recorder,
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

	output, err := h.execute(ctx, &input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.ErrCodeInvalidInput)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(err.Error()))
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	camunda.CompleteJob(client, job, output, h.logger)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Lead == nil || input.Lead.ID == "" {
		return nil, ErrMissingLead
	}
	return h.FollowUp(ctx, input.Lead), nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// FollowUp never fails; each failed step is logged and counted.
func (h *Handler) FollowUp(ctx context.Context, lead *models.Lead) *Output {
	out := &Output{}

	if h.crm != nil {
		out.CRMContactID, out.CRMSynced = h.syncCRM(ctx, lead)
	}

	if h.email != nil && len(h.config.EmailTo) > 0 {
		if _, err := h.email.SendText(ctx, h.config.EmailTo, h.config.EmailSubject, emailBody(lead)); err != nil {
			h.stepFailed("email", lead, apperrors.NewNotificationSendFailedError("email", err))
		} else {
			out.EmailSent = true
		}
	}

	if h.sms != nil {
		if _, err := h.sms.Publish(ctx, h.config.SMSSubject, smsBody(lead)); err != nil {
			h.stepFailed("sms", lead, apperrors.NewNotificationSendFailedError("sms", err))
		} else {
			out.SMSSent = true
		}
	}

	h.logger.Info("lead follow-up finished", map[string]interface{}{
		"leadId":    lead.ID,
		"crmSynced": out.CRMSynced,
		"emailSent": out.EmailSent,
		"smsSent":   out.SMSSent,
	})
	return out
}

func (h *Handler) syncCRM(ctx context.Context, lead *models.Lead) (string, bool) {
	contactID, err := h.crm.CreateLead(ctx, h.toZoho(lead))
	status := models.CRMSyncSynced
	if err != nil {
		h.stepFailed("crm", lead, apperrors.NewCRMSyncFailedError(err))
		status = models.CRMSyncFailed
		contactID = ""
	}

	if h.recorder != nil {
		if rerr := h.recorder.UpdateCRMSync(ctx, lead.ID, status, contactID); rerr != nil {
			h.stepFailed("crm_record", lead, rerr)
		}
	}
	return contactID, err == nil
}

func (h *Handler) stepFailed(step string, lead *models.Lead, err error) {
	metrics.FollowUpFailures.WithLabelValues(step).Inc()
	h.logger.Warn("lead follow-up step failed", map[string]interface{}{
		"step":   step,
		"leadId": lead.ID,
		"error":  err.Error(),
	})
}

func (h *Handler) toZoho(lead *models.Lead) *zoho.Lead {
	country := lead.Country
	if country == "" {
		country = h.config.Country
	}
	return &zoho.Lead{
		FirstName:   lead.FirstName,
		LastName:    lead.LastName,
		Email:       lead.Email,
		Phone:       lead.Phone,
		City:        lead.City,
		Country:     country,
		LeadSource:  lead.Source,
		LeadStatus:  "Not Contacted",
		Description: "Conversación " + lead.ConversationID,
	}
}

func emailBody(lead *models.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nombre: %s\n", lead.FullName())
	if lead.Phone != "" {
		fmt.Fprintf(&b, "Teléfono: %s\n", lead.Phone)
	}
	if lead.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", lead.Email)
	}
	if lead.City != "" {
		fmt.Fprintf(&b, "Ciudad: %s\n", lead.City)
	}
	fmt.Fprintf(&b, "Canal: %s\n", lead.Source)
	if lead.ConsentDate != nil {
		fmt.Fprintf(&b, "Consentimiento: %s\n", lead.ConsentDate.Format(time.RFC3339))
	}
	return b.String()
}

func smsBody(lead *models.Lead) string {
	contact := lead.Phone
	if contact == "" {
		contact = lead.Email
	}
	return fmt.Sprintf("Nuevo lead: %s (%s) vía %s", lead.FullName(), contact, lead.Source)
}
