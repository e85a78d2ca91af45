package agents

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRemoveProfileBlock(t *testing.T) {
	c := testConfigurer(t)
	t.Setenv("SHELL", "/bin/bash")

	profile := c.ProfilePath()
	require.NoError(t, os.WriteFile(profile, []byte("export PATH=$PATH:/opt/stuff\n"), 0o644))

	res, err := c.Configure(GeminiCLI, nil)
	require.NoError(t, err)
	_, err = c.AppendProfile(res.ShellConfig)
	require.NoError(t, err)

	path, err := c.Remove(GeminiCLI)
	require.NoError(t, err)
	require.Equal(t, profile, path)

	after, err := os.ReadFile(profile)
	require.NoError(t, err)
	require.NotContains(t, string(after), geminiCLIHeader)
	require.NotContains(t, string(after), "CODE_ASSIST_ENDPOINT")
	// user content survives
	require.Contains(t, string(after), "/opt/stuff")
}

func TestRemoveProfileBlockKeepsTail(t *testing.T) {
	c := testConfigurer(t)
	t.Setenv("SHELL", "/bin/zsh")

	res, err := c.Configure(ClaudeCode, nil)
	require.NoError(t, err)
	_, err = c.AppendProfile(res.ShellConfig)
	require.NoError(t, err)

	// user adds their own section after ours
	profile := c.ProfilePath()
	existing, err := os.ReadFile(profile)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(profile,
		append(existing, []byte("\nalias ll='ls -la'\n")...), 0o644))

	_, err = c.Remove(ClaudeCode)
	require.NoError(t, err)

	after, err := os.ReadFile(profile)
	require.NoError(t, err)
	require.NotContains(t, string(after), "ANTHROPIC_BASE_URL")
	require.Contains(t, string(after), "alias ll")
}

func TestRemoveProfileBlockMissing(t *testing.T) {
	c := testConfigurer(t)
	t.Setenv("SHELL", "/bin/bash")
	_, err := c.Remove(ClaudeCode)
	require.Error(t, err)
}

func TestRemoveAmp(t *testing.T) {
	c := testConfigurer(t)
	_, err := c.Configure(AmpCLI, nil)
	require.NoError(t, err)
	require.NoError(t, c.AddMCPServer("files", MCPServer{Command: "mcp-files"}))

	path, err := c.Remove(AmpCLI)
	require.NoError(t, err)

	doc := readJSON(t, path)
	require.NotContains(t, doc, "amp.url")
	require.NotContains(t, doc, "amp.apiKey")
	// MCP servers are not ours to delete
	require.Contains(t, doc, "amp.mcpServers")
}

func TestRemoveCodex(t *testing.T) {
	c := testConfigurer(t)
	_, err := c.Configure(Codex, nil)
	require.NoError(t, err)

	authPath := filepath.Join(c.home, ".codex", "auth.json")
	require.FileExists(t, authPath)

	path, err := c.Remove(Codex)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, toml.Unmarshal(data, &doc))
	require.NotContains(t, doc, "model_provider")
	require.NotContains(t, doc, "model_providers")
	require.NoFileExists(t, authPath)
}

func TestRemoveCodexKeepsForeignProviders(t *testing.T) {
	c := testConfigurer(t)
	dir := filepath.Join(c.home, ".codex")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
model_provider = "other"

[model_providers.other]
name = "other"
base_url = "https://example.com/v1"
`), 0o644))

	_, err := c.Configure(Codex, nil)
	require.NoError(t, err)
	path, err := c.Remove(Codex)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, toml.Unmarshal(data, &doc))
	providers := doc["model_providers"].(map[string]any)
	require.Contains(t, providers, "other")
	require.NotContains(t, providers, codexProvider)
}

func TestRemoveDroid(t *testing.T) {
	c := testConfigurer(t)
	_, err := c.Configure(FactoryDroid, testModels())
	require.NoError(t, err)

	path, err := c.Remove(FactoryDroid)
	require.NoError(t, err)

	doc := readJSON(t, path)
	models := doc["custom_models"].([]any)
	require.Empty(t, models)
}

func TestRemoveOpenCode(t *testing.T) {
	c := testConfigurer(t)
	_, err := c.Configure(OpenCode, testModels())
	require.NoError(t, err)

	path, err := c.Remove(OpenCode)
	require.NoError(t, err)

	doc := readJSON(t, path)
	require.NotContains(t, doc, "provider")
	// schema key untouched
	require.Contains(t, doc, "$schema")
}

func TestRemoveContinue(t *testing.T) {
	c := testConfigurer(t)
	dir := filepath.Join(c.home, ".continue")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`name: Mine
version: 0.0.1
models:
  - name: My Model
    provider: openai
    model: gpt-4
    apiKey: sk-mine
`), 0o644))

	_, err := c.Configure(Continue, nil)
	require.NoError(t, err)

	path, err := c.Remove(Continue)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "ProxyPal")

	var doc struct {
		Models []struct {
			Name string `yaml:"name"`
		} `yaml:"models"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Len(t, doc.Models, 1)
	require.Equal(t, "My Model", doc.Models[0].Name)
}

func TestRemoveUnknownAgent(t *testing.T) {
	c := testConfigurer(t)
	_, err := c.Remove("not-an-agent")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "unknown agent"))
}
