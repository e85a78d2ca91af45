package agents

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/proxypal/proxypal/internal/proxyconfig"
)

// Remove undoes what Configure wrote for one agent. It only touches state
// ProxyPal owns: marker-delimited profile blocks, ProxyPal keys in shared
// settings files, and config entries carrying the local API key. Returns the
// path that was cleaned.
func (c *Configurer) Remove(agent string) (string, error) {
	switch agent {
	case ClaudeCode:
		return c.removeProfileBlock(claudeCodeHeader)
	case GeminiCLI:
		return c.removeProfileBlock(geminiCLIHeader)
	case AmpCLI:
		return c.removeAmpKeys()
	case Codex:
		return c.removeCodex()
	case FactoryDroid:
		return c.removeDroid()
	case OpenCode:
		return c.removeOpenCode()
	case Continue:
		return c.removeContinue()
	default:
		return "", fmt.Errorf("unknown agent: %s", agent)
	}
}

// removeProfileBlock strips a generated export block from the shell profile.
// The block runs from its header comment through the following comment,
// export, and blank lines.
func (c *Configurer) removeProfileBlock(header string) (string, error) {
	path := c.ProfilePath()
	existing, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("no shell profile at %s", path)
		}
		return "", fmt.Errorf("could not read shell profile: %w", err)
	}

	lines := strings.Split(string(existing), "\n")
	out := make([]string, 0, len(lines))
	found := false
	for i := 0; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != header {
			out = append(out, lines[i])
			continue
		}
		found = true
		for i++; i < len(lines); i++ {
			t := strings.TrimSpace(lines[i])
			if t != "" && !strings.HasPrefix(t, "#") && !strings.HasPrefix(t, "export ") {
				i--
				break
			}
		}
	}
	if !found {
		return "", fmt.Errorf("no %q block in %s", header, path)
	}

	content := strings.TrimRight(strings.Join(out, "\n"), " \t\n") + "\n"
	if err := renameio.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("could not write shell profile: %w", err)
	}
	return path, nil
}

func (c *Configurer) removeAmpKeys() (string, error) {
	doc := c.readAmpSettings()
	if len(doc) == 0 {
		return "", fmt.Errorf("no amp settings at %s", c.AmpSettingsPath())
	}
	for k := range c.ampSettings() {
		delete(doc, k)
	}
	if err := c.writeAmpSettings(doc); err != nil {
		return "", err
	}
	return c.AmpSettingsPath(), nil
}

func (c *Configurer) removeCodex() (string, error) {
	dir := filepath.Join(c.home, ".codex")
	configPath := filepath.Join(dir, "config.toml")
	existing, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("could not read codex config: %w", err)
	}
	var doc map[string]any
	if err := toml.Unmarshal(existing, &doc); err != nil {
		return "", fmt.Errorf("could not parse codex config: %w", err)
	}

	if doc["model_provider"] == codexProvider {
		delete(doc, "model_provider")
		delete(doc, "model")
		delete(doc, "model_reasoning_effort")
	}
	if providers, ok := doc["model_providers"].(map[string]any); ok {
		delete(providers, codexProvider)
		if len(providers) == 0 {
			delete(doc, "model_providers")
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return "", fmt.Errorf("could not encode codex config: %w", err)
	}
	if err := renameio.WriteFile(configPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("could not write codex config: %w", err)
	}

	// The auth file is only ours when it holds the local key.
	authPath := filepath.Join(dir, "auth.json")
	if data, err := os.ReadFile(authPath); err == nil && bytes.Contains(data, []byte(proxyconfig.LocalAPIKey)) {
		if err := os.Remove(authPath); err != nil {
			return "", fmt.Errorf("could not remove codex auth file: %w", err)
		}
	}
	return configPath, nil
}

func (c *Configurer) removeDroid() (string, error) {
	configPath := filepath.Join(c.home, ".factory", "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("could not read factory config: %w", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil || parsed == nil {
		return "", fmt.Errorf("could not parse factory config: %w", err)
	}

	arr, _ := parsed["custom_models"].([]any)
	kept := make([]any, 0, len(arr))
	for _, m := range arr {
		if entry, ok := m.(map[string]any); ok && entry["api_key"] == proxyconfig.LocalAPIKey {
			continue
		}
		kept = append(kept, m)
	}
	parsed["custom_models"] = kept

	out, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("could not encode factory config: %w", err)
	}
	if err := renameio.WriteFile(configPath, append(out, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("could not write factory config: %w", err)
	}
	return configPath, nil
}

func (c *Configurer) removeOpenCode() (string, error) {
	configPath := filepath.Join(c.home, ".config", "opencode", "opencode.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("could not read opencode config: %w", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil || parsed == nil {
		return "", fmt.Errorf("could not parse opencode config: %w", err)
	}

	providers, _ := parsed["provider"].(map[string]any)
	if _, ok := providers["proxypal"]; !ok {
		return "", fmt.Errorf("no proxypal provider in %s", configPath)
	}
	delete(providers, "proxypal")
	if len(providers) == 0 {
		delete(parsed, "provider")
	}

	out, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("could not encode opencode config: %w", err)
	}
	if err := renameio.WriteFile(configPath, append(out, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("could not write opencode config: %w", err)
	}
	return configPath, nil
}

func (c *Configurer) removeContinue() (string, error) {
	configPath := filepath.Join(c.home, ".continue", "config.yaml")
	existing, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("could not read continue config: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(existing, &doc); err != nil {
		return "", fmt.Errorf("could not parse continue config: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 ||
		doc.Content[0].Kind != yaml.MappingNode {
		return "", errors.New("could not parse continue config: not a yaml mapping")
	}
	root := doc.Content[0]

	removed := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "models" {
			continue
		}
		models := root.Content[i+1]
		if models.Kind != yaml.SequenceNode {
			break
		}
		kept := models.Content[:0]
		for _, entry := range models.Content {
			if continueEntryIsOurs(entry) {
				removed = true
				continue
			}
			kept = append(kept, entry)
		}
		models.Content = kept
		break
	}
	if !removed {
		return "", fmt.Errorf("no ProxyPal model in %s", configPath)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("could not encode continue config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("could not encode continue config: %w", err)
	}
	if err := renameio.WriteFile(configPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("could not write continue config: %w", err)
	}
	return configPath, nil
}

func continueEntryIsOurs(entry *yaml.Node) bool {
	if entry.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(entry.Content); i += 2 {
		key, value := entry.Content[i].Value, entry.Content[i+1].Value
		if key == "apiKey" && value == proxyconfig.LocalAPIKey {
			return true
		}
		if key == "name" && strings.Contains(value, "ProxyPal") {
			return true
		}
	}
	return false
}
