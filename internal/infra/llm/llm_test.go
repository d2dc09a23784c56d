package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIAssistant_Reply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"model":"gpt-4o-mini"`)
		assert.Contains(t, string(body), "How do I submit?")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Open the Submit page."}}]}`))
	}))
	defer srv.Close()

	a := NewOpenAIAssistant("k", srv.URL, "gpt-4o-mini", "be brief", 64, srv.Client())
	got, err := a.Reply(context.Background(), "How do I submit?")
	require.NoError(t, err)
	assert.Equal(t, "Open the Submit page.", got)
}

func TestAnthropicAssistant_Reply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "be brief")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"m1","type":"message","role":"assistant","model":"claude-x",
			"content":[{"type":"text","text":"Approvals come from supervisors."}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":5}}`))
	}))
	defer srv.Close()

	a := NewAnthropicAssistant("k", srv.URL, "claude-x", "be brief", 64, srv.Client())
	got, err := a.Reply(context.Background(), "Who approves?")
	require.NoError(t, err)
	assert.Equal(t, "Approvals come from supervisors.", got)
}

func TestOpenAIAssistant_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	a := NewOpenAIAssistant("k", srv.URL, "m", "", 0, srv.Client())
	_, err := a.Reply(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrEmptyReply)
}
