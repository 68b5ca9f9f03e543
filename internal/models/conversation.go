// internal/models/conversation.go
package models

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationMessage is one entry of a conversation history.
type ConversationMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
