package agents

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/proxypal/proxypal/internal/gateway"
	"github.com/proxypal/proxypal/internal/proto"
	"github.com/proxypal/proxypal/internal/proxyconfig"
)

// droidModels builds Factory's custom_models entries. Claude models speak
// the anthropic protocol at the proxy root, everything else goes through the
// OpenAI-compatible /v1 surface.
func (c *Configurer) droidModels(models []proto.ModelInfo) []any {
	out := make([]any, 0, len(models))
	for _, m := range models {
		baseURL, provider := c.cfg.Endpoint()+"/v1", "openai"
		if m.OwnedBy == "anthropic" {
			baseURL, provider = c.cfg.Endpoint(), "anthropic"
		}
		_, output := gateway.Limits(m.ID, m.OwnedBy)
		out = append(out, map[string]any{
			"model":      m.ID,
			"base_url":   baseURL,
			"api_key":    proxyconfig.LocalAPIKey,
			"provider":   provider,
			"max_tokens": output,
		})
	}
	return out
}

func (c *Configurer) configureDroid(models []proto.ModelInfo) (*Result, error) {
	dir := filepath.Join(c.home, ".factory")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create factory directory: %w", err)
	}
	configPath := filepath.Join(dir, "config.json")

	ours := c.droidModels(models)
	doc := map[string]any{"custom_models": ours}

	// Merge with an existing config: the user's own custom_models survive,
	// previous proxypal entries are replaced wholesale.
	if existing, err := os.ReadFile(configPath); err == nil {
		var parsed map[string]any
		if json.Unmarshal(existing, &parsed) == nil && parsed != nil {
			kept := make([]any, 0, len(ours))
			if arr, ok := parsed["custom_models"].([]any); ok {
				for _, m := range arr {
					if entry, ok := m.(map[string]any); ok && entry["api_key"] == proxyconfig.LocalAPIKey {
						continue
					}
					kept = append(kept, m)
				}
			}
			parsed["custom_models"] = append(kept, ours...)
			doc = parsed
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not encode factory config: %w", err)
	}
	if err := renameio.WriteFile(configPath, append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("could not write factory config: %w", err)
	}

	return &Result{
		Agent:            FactoryDroid,
		ConfigType:       TypeFile,
		ConfigPath:       configPath,
		ModelsConfigured: len(models),
		Instructions:     "Factory Droid has been configured. Run 'droid' or 'factory' to start using it.",
	}, nil
}
