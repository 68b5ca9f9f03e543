// internal/models/exchange.go
package models

import "time"

// ExchangeKind separates free-text messages from slash commands.
type ExchangeKind string

const (
	ExchangeMessage ExchangeKind = "message"
	ExchangeCommand ExchangeKind = "command"
)

// Exchange is one routed inbound message and the reply sent for it.
type Exchange struct {
	ID             string       `json:"id" db:"id"`
	ConversationID string       `json:"conversationId" db:"conversation_id"`
	UserName       string       `json:"userName,omitempty" db:"user_name"`
	Text           string       `json:"text" db:"message_text"`
	Reply          string       `json:"reply" db:"bot_response"`
	Kind           ExchangeKind `json:"kind" db:"kind"`
	Intent         IntentType   `json:"intent,omitempty" db:"intent"`
	CreatedAt      time.Time    `json:"createdAt" db:"created_at"`
}
