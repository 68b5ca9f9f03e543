// internal/workers/dialogue/route-message/models.go
package routemessage

type Input struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
	UserName       string `json:"userName,omitempty"`
}

type Output struct {
	Reply string `json:"reply"`
}
