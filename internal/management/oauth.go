package management

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/proxypal/proxypal/internal/proto"
)

// authURLEndpoints maps providers to the management route that starts their
// OAuth flow.
var authURLEndpoints = map[proto.Provider]string{
	proto.ProviderClaude:      "anthropic-auth-url",
	proto.ProviderOpenAI:      "codex-auth-url",
	proto.ProviderCodex:       "codex-auth-url",
	proto.ProviderGemini:      "gemini-cli-auth-url",
	proto.ProviderQwen:        "qwen-auth-url",
	proto.ProviderIFlow:       "iflow-auth-url",
	proto.ProviderAntigravity: "antigravity-auth-url",
}

// AuthURL asks the proxy for a browser OAuth URL and the state token to poll
// with. is_webui routes the callback through the proxy's embedded forwarder,
// so no local callback server is needed.
func (c *Client) AuthURL(ctx context.Context, provider proto.Provider) (authURL, state string, err error) {
	endpoint, ok := authURLEndpoints[provider]
	if !ok {
		if provider == proto.ProviderVertex {
			return "", "", fmt.Errorf("vertex uses service account import, not OAuth")
		}
		return "", "", fmt.Errorf("provider %s does not support OAuth", provider)
	}
	resp, err := c.get(ctx, endpoint+"?is_webui=true")
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close() //nolint:errcheck
	if err := checkResponse(resp); err != nil {
		return "", "", err
	}
	var body struct {
		URL   string `json:"url"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", fmt.Errorf("could not parse auth URL response: %w", err)
	}
	if body.URL == "" {
		return "", "", fmt.Errorf("no auth URL in response")
	}
	return body.URL, body.State, nil
}

// AuthCompleted polls an OAuth flow. It reports true once the proxy has
// stored the credential.
func (c *Client) AuthCompleted(ctx context.Context, state string) (bool, error) {
	resp, err := c.get(ctx, "get-auth-status?state="+url.QueryEscape(state))
	if err != nil {
		return false, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, nil
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("could not parse auth status response: %w", err)
	}
	return body.Status == "ok", nil
}
