package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/healthgrid/govai/internal/config"
)

// NewClient builds the provider named by the config. Ollama is reached
// through its OpenAI-compatible endpoint, so it shares the OpenAI client.
func NewClient(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Temperature), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.Temperature)

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Temperature), nil

	case "ollama":
		baseURL := strings.TrimRight(cfg.BaseURL, "/")
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", baseURL)
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama" // Dummy key, required by the client config
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL, cfg.Temperature), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
