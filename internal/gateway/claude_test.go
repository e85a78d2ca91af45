package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/require"
)

func claudeTestClient(tb testing.TB, handler http.HandlerFunc) *Client {
	tb.Helper()
	srv := httptest.NewServer(handler)
	tb.Cleanup(srv.Close)
	anth := anthropic.NewClient(
		aoption.WithBaseURL(srv.URL),
		aoption.WithAPIKey("proxypal-local"),
		aoption.WithHTTPClient(srv.Client()),
		aoption.WithMaxRetries(0),
	)
	return &Client{anth: anth}
}

func TestClaudeProbe(t *testing.T) {
	c := claudeTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "proxypal-local", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "ok"}],
			"stop_reason": "max_tokens",
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`)
	})

	res := c.ClaudeProbe(context.Background(), "claude-sonnet-4-5")
	require.True(t, res.Success)
	require.Contains(t, res.Message, "claude-sonnet-4-5")
}

func TestClaudeProbeFailure(t *testing.T) {
	c := claudeTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprint(w, `{"type":"error","error":{"type":"authentication_error","message":"no auth"}}`)
	})

	res := c.ClaudeProbe(context.Background(), "claude-sonnet-4-5")
	require.False(t, res.Success)
	require.Contains(t, res.Message, "Claude request failed")
}
