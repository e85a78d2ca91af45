// Package gateway talks to the proxy's OpenAI-compatible surface: model
// listings, lightweight health probes, and connectivity tests for custom
// providers. Everything goes through the local endpoint with the built-in
// key, so probes never consume upstream tokens.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/proxypal/proxypal/internal/proto"
	"github.com/proxypal/proxypal/internal/proxyconfig"
)

const requestTimeout = 10 * time.Second

// Client wraps the proxy's /v1 endpoint.
type Client struct {
	oai  openai.Client
	anth anthropic.Client
	base string
}

// New makes a Client for the proxy listening on port.
func New(port int) *Client {
	base := fmt.Sprintf("http://localhost:%d/v1", port)
	client := openai.NewClient(
		option.WithBaseURL(base),
		option.WithAPIKey(proxyconfig.LocalAPIKey),
		option.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
		option.WithMaxRetries(0),
	)
	return &Client{oai: client, anth: newAnthropicClient(port), base: base}
}

// Models lists the models the proxy currently serves.
func (c *Client) Models(ctx context.Context) ([]proto.ModelInfo, error) {
	page, err := c.oai.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("proxy not responding: %w", err)
	}
	models := make([]proto.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, proto.ModelInfo{ID: m.ID, OwnedBy: m.OwnedBy})
	}
	return models, nil
}

// Health probes the models endpoint and reports reachability plus latency.
func (c *Client) Health(ctx context.Context) (bool, time.Duration) {
	start := time.Now()
	_, err := c.oai.Models.List(ctx)
	return err == nil, time.Since(start)
}

// TestResult reports an agent connectivity test through the proxy.
type TestResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	LatencyMS int64  `json:"latencyMs,omitempty"`
}

// TestAgent checks that an agent pointed at the proxy would get answers,
// using the models endpoint so no tokens are spent.
func (c *Client) TestAgent(ctx context.Context, agent string) TestResult {
	start := time.Now()
	_, err := c.oai.Models.List(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("Connection failed: %v", err)}
	}
	return TestResult{
		Success:   true,
		Message:   fmt.Sprintf("Connection successful! %s is ready to use.", agent),
		LatencyMS: latency,
	}
}
