package agents

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/proxypal/proxypal/internal/proxyconfig"
)

// ampSettings are the keys ProxyPal owns in Amp's settings.json. Model
// mappings deliberately aren't here: Amp ignores an amp.modelMapping key,
// routing happens in the generated proxy configuration instead.
func (c *Configurer) ampSettings() map[string]any {
	return map[string]any{
		"amp.url":                          c.cfg.LocalhostEndpoint(),
		"amp.apiKey":                       proxyconfig.LocalAPIKey,
		"amp.anthropic.thinking.enabled":   true,
		"amp.todos.enabled":                true,
		"amp.git.commit.ampThread.enabled": true,
		"amp.git.commit.coauthor.enabled":  true,
		"amp.tools.stopTimeout":            300,
		"amp.updates.mode":                 "auto",
	}
}

// AmpSettingsPath is ~/.config/amp/settings.json on every platform; the Amp
// CLI does not follow XDG overrides.
func (c *Configurer) AmpSettingsPath() string {
	return filepath.Join(c.home, ".config", "amp", "settings.json")
}

func (c *Configurer) configureAmp() (*Result, error) {
	doc := c.readAmpSettings()
	for k, v := range c.ampSettings() {
		doc[k] = v
	}
	// Stale key from older releases; mappings moved into the proxy config.
	delete(doc, "amp.modelMapping")
	if err := c.writeAmpSettings(doc); err != nil {
		return nil, err
	}

	shell := fmt.Sprintf(`# ProxyPal - Amp CLI Configuration (alternative to settings.json)
export AMP_URL="%s"
export AMP_API_KEY="%s"

# For Amp cloud features, get your API key from https://ampcode.com/settings
# and store it with: proxypal config set ampApiKey <key>
`, c.cfg.LocalhostEndpoint(), proxyconfig.LocalAPIKey)

	return &Result{
		Agent:        AmpCLI,
		ConfigType:   TypeBoth,
		ConfigPath:   c.AmpSettingsPath(),
		ShellConfig:  shell,
		Instructions: "Amp CLI has been configured. Run 'amp' to start using it. The API key 'proxypal-local' is pre-configured for local proxy access.",
	}, nil
}

// readAmpSettings parses settings.json, returning an empty document when the
// file is missing or not valid JSON.
func (c *Configurer) readAmpSettings() map[string]any {
	data, err := os.ReadFile(c.AmpSettingsPath())
	if err != nil {
		return map[string]any{}
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return map[string]any{}
	}
	return doc
}

func (c *Configurer) writeAmpSettings(doc map[string]any) error {
	path := c.AmpSettingsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create amp config directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode amp settings: %w", err)
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("could not write amp settings: %w", err)
	}
	return nil
}
