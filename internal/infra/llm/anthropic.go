package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type AnthropicAssistant struct {
	client    anthropic.Client
	model     string
	system    string
	maxTokens int64
}

func NewAnthropicAssistant(apiKey, baseURL, model, system string, maxTokens int, hc *http.Client) *AnthropicAssistant {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc))
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &AnthropicAssistant{
		client:    anthropic.NewClient(opts...),
		model:     model,
		system:    system,
		maxTokens: int64(maxTokens),
	}
}

func (a *AnthropicAssistant) Reply(ctx context.Context, message string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(message)),
		},
	}
	if a.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: a.system}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyReply
	}
	return sb.String(), nil
}
