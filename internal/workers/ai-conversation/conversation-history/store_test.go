package conversationhistory

import (
	"fmt"
	"sync"
	"testing"

	"directory-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *Config {
	return &Config{MaxMessages: 20}
}

func TestStore_AppendAndWindow(t *testing.T) {
	s := NewStore(createTestConfig())

	s.Append("c1", models.RoleUser, "hola")
	s.Append("c1", models.RoleAssistant, "¿en qué te ayudo?")

	window := s.Window("c1")
	require.Len(t, window, 2)
	assert.Equal(t, models.RoleUser, window[0].Role)
	assert.Equal(t, "¿en qué te ayudo?", window[1].Content)
	assert.Empty(t, s.Window("unknown"))
}

func TestStore_CapEvictsOldestFirst(t *testing.T) {
	s := NewStore(createTestConfig())

	for i := 1; i <= 25; i++ {
		s.Append("c1", models.RoleUser, fmt.Sprintf("m%d", i))
	}

	window := s.Window("c1")
	require.Len(t, window, 20)
	assert.Equal(t, "m6", window[0].Content)
	assert.Equal(t, "m25", window[19].Content)
	assert.Equal(t, 20, s.Size("c1"))
}

func TestStore_WindowIsACopy(t *testing.T) {
	s := NewStore(createTestConfig())
	s.Append("c1", models.RoleUser, "original")

	window := s.Window("c1")
	window[0].Content = "mutated"

	assert.Equal(t, "original", s.Window("c1")[0].Content)
}

func TestStore_RequestWindowPrependsSystemPrompt(t *testing.T) {
	s := NewStore(&Config{MaxMessages: 2})
	s.Append("c1", models.RoleUser, "a")
	s.Append("c1", models.RoleAssistant, "b")

	window := s.RequestWindow("c1", "eres un asistente")

	require.Len(t, window, 3)
	assert.Equal(t, models.RoleSystem, window[0].Role)
	assert.Equal(t, "eres un asistente", window[0].Content)
	assert.Equal(t, 2, s.Size("c1"))
}

func TestStore_ClearAndActive(t *testing.T) {
	s := NewStore(createTestConfig())
	s.Append("c1", models.RoleUser, "a")
	s.Append("c2", models.RoleUser, "b")
	assert.Equal(t, 2, s.ActiveConversations())

	s.Clear("c1")

	assert.Equal(t, 1, s.ActiveConversations())
	assert.Zero(t, s.Size("c1"))
}

func TestStore_ConcurrentAppends(t *testing.T) {
	s := NewStore(&Config{MaxMessages: 1000})

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", g%2)
			for i := 0; i < 50; i++ {
				s.Append(id, models.RoleUser, "x")
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 250, s.Size("c0"))
	assert.Equal(t, 250, s.Size("c1"))
}

func TestNewStore_DefaultCap(t *testing.T) {
	s := NewStore(&Config{})
	for i := 0; i < 30; i++ {
		s.Append("c", models.RoleUser, "x")
	}
	assert.Equal(t, 20, s.Size("c"))
}
