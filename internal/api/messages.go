// internal/api/messages.go
package api

import (
	"errors"
	"io"
	"net/http"

	apperrors "directory-assistant/internal/common/errors"
	"directory-assistant/internal/common/validation"
	routemessage "directory-assistant/internal/workers/dialogue/route-message"

	"github.com/go-chi/chi/v5"
)

const maxMessageBody = 64 << 10

var messageRequestSchema = validation.MustCompileSchema(`{
	"type": "object",
	"required": ["text"],
	"additionalProperties": false,
	"properties": {
		"text":     {"type": "string", "minLength": 1, "maxLength": 4096},
		"userName": {"type": "string", "maxLength": 128}
	}
}`)

type MessageRequest struct {
	Text     string `json:"text"`
	UserName string `json:"userName,omitempty"`
}

type MessageResponse struct {
	ConversationID string `json:"conversationId"`
	Reply          string `json:"reply"`
}

type LeadStateResponse struct {
	ConversationID string `json:"conversationId"`
	State          string `json:"state"`
}

type ErrorResponse struct {
	Code    string                       `json:"code"`
	Message string                       `json:"message"`
	Details []validation.ValidationError `json:"details,omitempty"`
}

func (rt *Router) postMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidInput, "request body could not be read")
		return
	}
	if len(body) > maxMessageBody {
		writeError(w, http.StatusRequestEntityTooLarge, apperrors.ErrCodeInvalidInput, "request body too large")
		return
	}

	req, result, err := decodeMessageRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidInput, "request body must be a JSON object")
		return
	}
	if !result.Valid {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    string(apperrors.ErrCodeInvalidInput),
			Message: "request does not match schema",
			Details: result.Errors,
		})
		return
	}

	out, err := rt.messages.Execute(r.Context(), &routemessage.Input{
		ConversationID: conversationID,
		Text:           req.Text,
		UserName:       req.UserName,
	})
	if err != nil {
		if errors.Is(err, routemessage.ErrEmptyMessage) || errors.Is(err, routemessage.ErrMissingConversation) {
			writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidInput, err.Error())
			return
		}
		rt.logger.Error("message routing failed", map[string]interface{}{
			"conversationId": conversationID,
			"error":          err.Error(),
		})
		writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInternal, "message could not be routed")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{ConversationID: conversationID, Reply: out.Reply})
}

func (rt *Router) getLeadState(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	state, err := rt.messages.LeadState(r.Context(), conversationID)
	if err != nil {
		rt.logger.Error("lead state lookup failed", map[string]interface{}{
			"conversationId": conversationID,
			"error":          err.Error(),
		})
		writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInternal, "lead state unavailable")
		return
	}

	writeJSON(w, http.StatusOK, LeadStateResponse{ConversationID: conversationID, State: state.String()})
}
