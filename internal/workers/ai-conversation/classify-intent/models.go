// internal/workers/ai-conversation/classify-intent/models.go
package classifyintent

import "directory-assistant/internal/models"

type Input struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
}

type Output struct {
	Intent   models.Intent `json:"intent"`
	Fallback bool          `json:"fallback"`
}

// intentPayload is the flat object the model is asked to produce.
type intentPayload struct {
	Intent     string  `json:"intent"`
	SearchTerm *string `json:"searchTerm"`
	Confidence float64 `json:"confidence"`
	HasConsent *bool   `json:"hasConsent"`
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	City       *string `json:"city"`
}
