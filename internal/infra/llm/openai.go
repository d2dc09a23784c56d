// Package llm adapts vendor chat SDKs to the assistant's single-turn reply contract.
package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var ErrEmptyReply = errors.New("llm returned no content")

type OpenAIAssistant struct {
	client    openai.Client
	model     string
	system    string
	maxTokens int64
}

func NewOpenAIAssistant(apiKey, baseURL, model, system string, maxTokens int, hc *http.Client) *OpenAIAssistant {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc))
	}
	return &OpenAIAssistant{
		client:    openai.NewClient(opts...),
		model:     model,
		system:    system,
		maxTokens: int64(maxTokens),
	}
}

func (a *OpenAIAssistant) Reply(ctx context.Context, message string) (string, error) {
	msgs := []openai.ChatCompletionMessageParamUnion{}
	if a.system != "" {
		msgs = append(msgs, openai.SystemMessage(a.system))
	}
	msgs = append(msgs, openai.UserMessage(message))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.model),
		Messages: msgs,
	}
	if a.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(a.maxTokens)
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}
