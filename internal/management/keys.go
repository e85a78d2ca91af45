package management

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/proxypal/proxypal/internal/config"
)

// ModelAlias publishes an upstream model under another name.
type ModelAlias struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

// APIKey is an upstream API key as the management API serializes it.
type APIKey struct {
	Key            string            `json:"api-key"`
	BaseURL        string            `json:"base-url,omitempty"`
	ProxyURL       string            `json:"proxy-url,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Models         []ModelAlias      `json:"models,omitempty"`
	ExcludedModels []string          `json:"excluded-models,omitempty"`
}

// ToConfig converts a wire key into the persisted settings shape.
func (k APIKey) ToConfig() config.APIKeyEntry {
	e := config.APIKeyEntry{
		APIKey:         k.Key,
		BaseURL:        k.BaseURL,
		ProxyURL:       k.ProxyURL,
		Headers:        k.Headers,
		ExcludedModels: k.ExcludedModels,
	}
	for _, m := range k.Models {
		e.Models = append(e.Models, config.ProviderModel{Name: m.Name, Alias: m.Alias})
	}
	return e
}

// KeyFromConfig converts a persisted settings key into the wire shape.
func KeyFromConfig(e config.APIKeyEntry) APIKey {
	k := APIKey{
		Key:            e.APIKey,
		BaseURL:        e.BaseURL,
		ProxyURL:       e.ProxyURL,
		Headers:        e.Headers,
		ExcludedModels: e.ExcludedModels,
	}
	for _, m := range e.Models {
		k.Models = append(k.Models, ModelAlias{Name: m.Name, Alias: m.Alias})
	}
	return k
}

// ProviderKey is one API key entry of an OpenAI-compatible provider.
type ProviderKey struct {
	Key      string `json:"api-key"`
	ProxyURL string `json:"proxy-url,omitempty"`
}

// Provider is an OpenAI-compatible upstream as the proxy reports it.
type Provider struct {
	Name    string            `json:"name"`
	BaseURL string            `json:"base-url"`
	Keys    []ProviderKey     `json:"api-key-entries"`
	Models  []ModelAlias      `json:"models,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// GeminiKeys lists the proxy's Gemini API keys.
func (c *Client) GeminiKeys(ctx context.Context) ([]APIKey, error) {
	return listJSON[APIKey](ctx, c, "gemini-api-key", "gemini-api-key")
}

// SetGeminiKeys replaces the proxy's Gemini API keys.
func (c *Client) SetGeminiKeys(ctx context.Context, keys []APIKey) error {
	return c.putJSON(ctx, "gemini-api-key", keys)
}

// ClaudeKeys lists the proxy's Claude API keys.
func (c *Client) ClaudeKeys(ctx context.Context) ([]APIKey, error) {
	return listJSON[APIKey](ctx, c, "claude-api-key", "claude-api-key")
}

// SetClaudeKeys replaces the proxy's Claude API keys.
func (c *Client) SetClaudeKeys(ctx context.Context, keys []APIKey) error {
	return c.putJSON(ctx, "claude-api-key", keys)
}

// CodexKeys lists the proxy's Codex API keys.
func (c *Client) CodexKeys(ctx context.Context) ([]APIKey, error) {
	return listJSON[APIKey](ctx, c, "codex-api-key", "codex-api-key")
}

// SetCodexKeys replaces the proxy's Codex API keys.
func (c *Client) SetCodexKeys(ctx context.Context, keys []APIKey) error {
	return c.putJSON(ctx, "codex-api-key", keys)
}

// Providers lists the proxy's OpenAI-compatible providers.
func (c *Client) Providers(ctx context.Context) ([]Provider, error) {
	return listJSON[Provider](ctx, c, "openai-compatibility", "openai-compatibility")
}

// SetProviders replaces the proxy's OpenAI-compatible providers.
func (c *Client) SetProviders(ctx context.Context, providers []Provider) error {
	return c.putJSON(ctx, "openai-compatibility", providers)
}

// ConfigYAML returns the proxy's live configuration file.
func (c *Client) ConfigYAML(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, "config.yaml")
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

// SetConfigYAML replaces the proxy's live configuration file.
func (c *Client) SetConfigYAML(ctx context.Context, yaml string) error {
	resp, err := c.do(ctx, http.MethodPut, "config.yaml", "application/yaml", strings.NewReader(yaml))
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	return checkResponse(resp)
}
