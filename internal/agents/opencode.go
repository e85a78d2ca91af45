package agents

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/proxypal/proxypal/internal/gateway"
	"github.com/proxypal/proxypal/internal/proto"
	"github.com/proxypal/proxypal/internal/proxyconfig"
)

// thinkingOutputBuffer keeps room for the actual response above the thinking
// budget when a thinking model's output limit would otherwise be too small.
const thinkingOutputBuffer = 8192

// opencodeModel builds one model entry for OpenCode's provider config.
// Thinking variants advertise reasoning and carry the configured budget.
func (c *Configurer) opencodeModel(m proto.ModelInfo) map[string]any {
	contextLimit, outputLimit := gateway.Limits(m.ID, m.OwnedBy)
	entry := map[string]any{
		"name":  gateway.DisplayName(m.ID),
		"limit": map[string]any{"context": contextLimit, "output": outputLimit},
	}
	if strings.HasSuffix(m.ID, "-thinking") {
		budget := int64(c.cfg.ThinkingBudgetTokens())
		entry["reasoning"] = true
		entry["options"] = map[string]any{
			"thinking": map[string]any{"type": "enabled", "budgetTokens": budget},
		}
		entry["limit"] = map[string]any{
			"context": contextLimit,
			"output":  max(outputLimit, budget+thinkingOutputBuffer),
		}
	}
	return entry
}

func (c *Configurer) configureOpenCode(models []proto.ModelInfo) (*Result, error) {
	dir := filepath.Join(c.home, ".config", "opencode")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create opencode directory: %w", err)
	}
	configPath := filepath.Join(dir, "opencode.json")

	modelEntries := map[string]any{}
	for _, m := range models {
		modelEntries[m.ID] = c.opencodeModel(m)
	}
	provider := map[string]any{
		"npm":  "@ai-sdk/anthropic",
		"name": "ProxyPal",
		"options": map[string]any{
			"baseURL": c.cfg.Endpoint() + "/v1",
			"apiKey":  proxyconfig.LocalAPIKey,
		},
		"models": modelEntries,
	}

	doc := map[string]any{
		"$schema":  "https://opencode.ai/config.json",
		"provider": map[string]any{"proxypal": provider},
	}
	if existing, err := os.ReadFile(configPath); err == nil {
		var parsed map[string]any
		if json.Unmarshal(existing, &parsed) == nil && parsed != nil {
			providers, _ := parsed["provider"].(map[string]any)
			if providers == nil {
				providers = map[string]any{}
			}
			providers["proxypal"] = provider
			parsed["provider"] = providers
			doc = parsed
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not encode opencode config: %w", err)
	}
	if err := renameio.WriteFile(configPath, append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("could not write opencode config: %w", err)
	}

	return &Result{
		Agent:            OpenCode,
		ConfigType:       TypeFile,
		ConfigPath:       configPath,
		ModelsConfigured: len(models),
		Instructions:     "ProxyPal provider added to OpenCode. Run 'opencode' and use /models to select a model, e.g. proxypal/gemini-2.5-pro.",
	}, nil
}
