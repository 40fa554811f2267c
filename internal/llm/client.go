package llm

import (
	"fmt"

	"github.com/hyperjump/wraith/internal/config"
)

// NewChatClient returns the chat backend selected by cfg.Provider.
func NewChatClient(cfg config.GeneratorConfig) (ChatClient, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaClient(cfg.BaseURL, cfg.Model, cfg.Temperature), nil
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unknown generator provider: %s (supported: ollama, openai)", cfg.Provider)
	}
}
