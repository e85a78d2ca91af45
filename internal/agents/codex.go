package agents

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"

	"github.com/proxypal/proxypal/internal/proxyconfig"
)

// Defaults written into a fresh Codex config.
const (
	codexProvider = "cliproxyapi"
	codexModel    = "gpt-5-codex"
)

func (c *Configurer) configureCodex() (*Result, error) {
	dir := filepath.Join(c.home, ".codex")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create codex directory: %w", err)
	}

	configPath := filepath.Join(dir, "config.toml")
	data, err := c.codexConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := renameio.WriteFile(configPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("could not write codex config: %w", err)
	}

	authPath := filepath.Join(dir, "auth.json")
	auth := fmt.Sprintf("{\n  \"OPENAI_API_KEY\": %q\n}\n", proxyconfig.LocalAPIKey)
	if err := renameio.WriteFile(authPath, []byte(auth), 0o600); err != nil {
		return nil, fmt.Errorf("could not write codex auth file: %w", err)
	}

	return &Result{
		Agent:        Codex,
		ConfigType:   TypeFile,
		ConfigPath:   configPath,
		AuthPath:     authPath,
		Instructions: "Codex has been configured. Run 'codex' to start using it.",
	}, nil
}

// codexConfig renders config.toml. A fresh install gets the annotated
// template; an existing file keeps the user's other settings and only the
// provider keys are overridden.
func (c *Configurer) codexConfig(path string) ([]byte, error) {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("could not read codex config: %w", err)
	}
	if len(bytes.TrimSpace(existing)) == 0 {
		return c.freshCodexConfig(), nil
	}

	var doc map[string]any
	if err := toml.Unmarshal(existing, &doc); err != nil {
		// Not valid TOML, start over.
		return c.freshCodexConfig(), nil
	}
	doc["model_provider"] = codexProvider
	doc["model"] = codexModel
	doc["model_reasoning_effort"] = "high"
	providers, _ := doc["model_providers"].(map[string]any)
	if providers == nil {
		providers = map[string]any{}
	}
	providers[codexProvider] = map[string]any{
		"name":     codexProvider,
		"base_url": c.cfg.Endpoint() + "/v1",
		"wire_api": "responses",
	}
	doc["model_providers"] = providers

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("could not encode codex config: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Configurer) freshCodexConfig() []byte {
	return []byte(fmt.Sprintf(`# ProxyPal - Codex Configuration
model_provider = "%s"
model = "%s"
model_reasoning_effort = "high"

[model_providers.%s]
name = "%s"
base_url = "%s/v1"
wire_api = "responses"
`, codexProvider, codexModel, codexProvider, codexProvider, c.cfg.Endpoint()))
}
