package management

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// value getters tolerate error responses and fall back to the zero value,
// mirroring how the proxy behaves before its config is fully applied.
func (c *Client) getValue(ctx context.Context, path string, into any) (bool, error) {
	resp, err := c.get(ctx, path)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return false, fmt.Errorf("could not parse management response: %w", err)
	}
	return true, nil
}

// MaxRetryInterval returns the proxy's retry interval cap in seconds.
func (c *Client) MaxRetryInterval(ctx context.Context) (int, error) {
	var body struct {
		Value int `json:"max-retry-interval"`
	}
	if ok, err := c.getValue(ctx, "max-retry-interval", &body); !ok {
		return 0, err
	}
	return body.Value, nil
}

// SetMaxRetryInterval updates the proxy's retry interval cap.
func (c *Client) SetMaxRetryInterval(ctx context.Context, seconds int) error {
	return c.putValue(ctx, "max-retry-interval", seconds)
}

// WebsocketAuth reports whether the proxy requires auth on websocket routes.
func (c *Client) WebsocketAuth(ctx context.Context) (bool, error) {
	var body struct {
		Value bool `json:"ws-auth"`
	}
	if ok, err := c.getValue(ctx, "ws-auth", &body); !ok {
		return false, err
	}
	return body.Value, nil
}

// SetWebsocketAuth toggles auth on the proxy's websocket routes.
func (c *Client) SetWebsocketAuth(ctx context.Context, enabled bool) error {
	return c.putValue(ctx, "ws-auth", enabled)
}

// ForceModelMappings reports whether Amp model mappings override explicit
// model requests.
func (c *Client) ForceModelMappings(ctx context.Context) (bool, error) {
	var body struct {
		Value bool `json:"force-model-mappings"`
	}
	if ok, err := c.getValue(ctx, "ampcode/force-model-mappings", &body); !ok {
		return false, err
	}
	return body.Value, nil
}

// SetForceModelMappings toggles mapping priority over explicit model
// requests.
func (c *Client) SetForceModelMappings(ctx context.Context, enabled bool) error {
	return c.putValue(ctx, "ampcode/force-model-mappings", enabled)
}

// SetUsageStatisticsEnabled toggles the proxy's usage accounting.
func (c *Client) SetUsageStatisticsEnabled(ctx context.Context, enabled bool) error {
	return c.putValue(ctx, "usage-statistics-enabled", enabled)
}

// OAuthExcludedModels returns the models hidden from OAuth accounts, per
// provider.
func (c *Client) OAuthExcludedModels(ctx context.Context) (map[string][]string, error) {
	var body struct {
		Models map[string][]string `json:"oauth-excluded-models"`
	}
	if ok, err := c.getValue(ctx, "oauth-excluded-models", &body); !ok {
		return map[string][]string{}, err
	}
	if body.Models == nil {
		return map[string][]string{}, nil
	}
	return body.Models, nil
}

// SetOAuthExcludedModels replaces the excluded model list for one provider.
func (c *Client) SetOAuthExcludedModels(ctx context.Context, provider string, models []string) error {
	return c.sendJSON(ctx, http.MethodPatch, "oauth-excluded-models", map[string]any{
		"provider": provider,
		"models":   models,
	})
}

// DeleteOAuthExcludedModels clears the excluded model list for one provider.
func (c *Client) DeleteOAuthExcludedModels(ctx context.Context, provider string) error {
	return c.delete(ctx, "oauth-excluded-models?provider="+url.QueryEscape(provider))
}

// ErrorLogs lists the proxy's request error log files.
func (c *Client) ErrorLogs(ctx context.Context) ([]string, error) {
	resp, err := c.get(ctx, "request-error-logs")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read management response: %w", err)
	}
	return unwrapList[string](data, "files")
}

// ErrorLogContent returns the content of one request error log file.
func (c *Client) ErrorLogContent(ctx context.Context, filename string) (string, error) {
	resp, err := c.get(ctx, "request-error-logs/"+url.PathEscape(filename))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck
	if err := checkResponse(resp); err != nil {
		return "", err
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("could not read management response: %w", err)
	}
	return string(body), nil
}
