package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/ucu-innovators/hub/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// NewTracedClient returns an http.Client whose requests carry the caller's trace context.
func NewTracedClient(cfg *config.Config) *http.Client {
	return &http.Client{
		Timeout:   cfg.Assistant.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// AssistantClient talks to an external chat service exposing POST {base}/chat.
type AssistantClient struct {
	BaseURL      string
	APIKey       string
	SystemPrompt string
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

func NewAssistantClient(cfg *config.Config, log *zap.Logger) *AssistantClient {
	return &AssistantClient{
		BaseURL:      strings.TrimSuffix(cfg.Assistant.BaseURL, "/"),
		APIKey:       cfg.Assistant.APIKey,
		SystemPrompt: cfg.Assistant.SystemPrompt,
		HTTPClient:   NewTracedClient(cfg),
		Logger:       log,
	}
}

type ChatRequest struct {
	Message      string `json:"message"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

func (c *AssistantClient) Reply(ctx context.Context, message string) (string, error) {
	endpoint := c.BaseURL + "/chat"

	body, err := sonic.Marshal(ChatRequest{Message: message, SystemPrompt: c.SystemPrompt})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.Logger.Error("assistant chat request failed",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(respBody)))
		return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ChatResponse
	if err := sonic.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return result.Response, nil
}
