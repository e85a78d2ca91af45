package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/proxypal/proxypal/internal/proxyconfig"
)

// newAnthropicClient targets the proxy's Anthropic-compatible surface. The
// SDK appends /v1 itself, so the base URL is bare.
func newAnthropicClient(port int) anthropic.Client {
	return anthropic.NewClient(
		option.WithAPIKey(proxyconfig.LocalAPIKey),
		option.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)),
		option.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
		option.WithMaxRetries(0),
	)
}

// ClaudeProbe sends a one-token message through the proxy's Anthropic
// surface, the path Claude Code actually uses. Unlike the models probe this
// spends a token, so it only runs when the caller asks for a live check.
func (c *Client) ClaudeProbe(ctx context.Context, model string) TestResult {
	start := time.Now()
	_, err := c.anth.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("Claude request failed: %v", err)}
	}
	return TestResult{
		Success:   true,
		Message:   fmt.Sprintf("Live response from %s through the Claude endpoint.", model),
		LatencyMS: latency,
	}
}
