package bootstrap

import (
	"github.com/ucu-innovators/hub/internal/config"
	"github.com/ucu-innovators/hub/internal/infra/httpclient"
	"github.com/ucu-innovators/hub/internal/infra/llm"
	"github.com/ucu-innovators/hub/internal/modules/service"
	"go.uber.org/zap"
)

// NewAssistantBackend picks the reply backend named by assistant.provider.
// It returns nil for "none", which makes the assistant report unavailable.
func NewAssistantBackend(cfg *config.Config, log *zap.Logger) service.Replier {
	a := cfg.Assistant
	switch a.Provider {
	case "http":
		return httpclient.NewAssistantClient(cfg, log)
	case "openai":
		return llm.NewOpenAIAssistant(a.APIKey, a.BaseURL, a.Model, a.SystemPrompt, a.MaxTokens, httpclient.NewTracedClient(cfg))
	case "anthropic":
		return llm.NewAnthropicAssistant(a.APIKey, a.BaseURL, a.Model, a.SystemPrompt, a.MaxTokens, httpclient.NewTracedClient(cfg))
	default:
		return nil
	}
}
