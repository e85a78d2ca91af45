package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// ProviderTestResult reports a connectivity test against a custom
// OpenAI-compatible provider.
type ProviderTestResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	LatencyMS   int64  `json:"latencyMs,omitempty"`
	ModelsFound int    `json:"modelsFound,omitempty"`
}

// TestProvider checks a custom provider by listing its models. Providers
// disagree on where that lives, so it tries {base}/models first (for bases
// that already include /v1 or /v4) and {base}/v1/models second.
func TestProvider(ctx context.Context, baseURL, apiKey string) ProviderTestResult {
	if baseURL == "" || apiKey == "" {
		return ProviderTestResult{Message: "Base URL and API key are required"}
	}
	base := strings.TrimRight(baseURL, "/")
	endpoints := []string{base + "/models", base + "/v1/models"}

	client := &http.Client{Timeout: requestTimeout}
	start := time.Now()

	for _, endpoint := range endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return ProviderTestResult{Message: fmt.Sprintf("Invalid base URL: %v", err)}
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := client.Do(req)
		latency := time.Since(start).Milliseconds()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
				return ProviderTestResult{
					Message:   "Connection timed out - check your base URL",
					LatencyMS: latency,
				}
			}
			return ProviderTestResult{
				Message:   "Could not connect - check your base URL",
				LatencyMS: latency,
			}
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			var listing struct {
				Data []json.RawMessage `json:"data"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&listing)
			_ = resp.Body.Close()
			return ProviderTestResult{
				Success:     true,
				Message:     fmt.Sprintf("Connection successful! (%dms)", latency),
				LatencyMS:   latency,
				ModelsFound: len(listing.Data),
			}
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			_ = resp.Body.Close()
			return ProviderTestResult{
				Message:   "Authentication failed - check your API key",
				LatencyMS: latency,
			}
		default:
			// 404 and friends: try the next endpoint shape
			_ = resp.Body.Close()
		}
	}

	return ProviderTestResult{
		Message:   "Provider returned 404 Not Found - check your base URL (tried /models and /v1/models)",
		LatencyMS: time.Since(start).Milliseconds(),
	}
}
