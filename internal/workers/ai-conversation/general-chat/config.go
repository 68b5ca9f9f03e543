// internal/workers/ai-conversation/general-chat/config.go
package generalchat

const DefaultSystemPrompt = "Eres un asistente útil, amigable y conversacional. " +
	"Respondes en español de manera clara y concisa. " +
	"Eres servicial y proporcionas información precisa."

type Config struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	TopP         float64
}

func LoadConfig() *Config {
	return &Config{
		SystemPrompt: DefaultSystemPrompt,
		Temperature:  0.7,
		MaxTokens:    1024,
		TopP:         1.0,
	}
}
