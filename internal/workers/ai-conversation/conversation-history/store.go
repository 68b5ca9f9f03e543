// internal/workers/ai-conversation/conversation-history/store.go
package conversationhistory

import (
	"sync"

	"directory-assistant/internal/models"
)

type conversation struct {
	mu       sync.Mutex
	messages []models.ConversationMessage
}

// Store keeps a bounded message window per conversation. Operations on one
// conversation are atomic; different conversations do not contend.
type Store struct {
	maxMessages   int
	conversations sync.Map // string -> *conversation
}

func NewStore(config *Config) *Store {
	limit := config.MaxMessages
	if limit <= 0 {
		limit = 20
	}
	return &Store{maxMessages: limit}
}

func (s *Store) get(id string) *conversation {
	c, _ := s.conversations.LoadOrStore(id, &conversation{})
	return c.(*conversation)
}

// Append adds a message and drops the oldest entries beyond the cap.
func (s *Store) Append(id string, role models.Role, content string) {
	c := s.get(id)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, models.ConversationMessage{Role: role, Content: content})
	if over := len(c.messages) - s.maxMessages; over > 0 {
		c.messages = append(c.messages[:0:0], c.messages[over:]...)
	}
}

// Window returns a copy of the stored messages, oldest first.
func (s *Store) Window(id string) []models.ConversationMessage {
	v, ok := s.conversations.Load(id)
	if !ok {
		return []models.ConversationMessage{}
	}
	c := v.(*conversation)
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.ConversationMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// RequestWindow is Window with systemPrompt prepended. The prompt is not stored.
func (s *Store) RequestWindow(id, systemPrompt string) []models.ConversationMessage {
	window := s.Window(id)
	out := make([]models.ConversationMessage, 0, len(window)+1)
	out = append(out, models.ConversationMessage{Role: models.RoleSystem, Content: systemPrompt})
	return append(out, window...)
}

func (s *Store) Clear(id string) {
	s.conversations.Delete(id)
}

func (s *Store) Size(id string) int {
	v, ok := s.conversations.Load(id)
	if !ok {
		return 0
	}
	c := v.(*conversation)
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (s *Store) ActiveConversations() int {
	n := 0
	s.conversations.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
