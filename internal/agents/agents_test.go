package agents

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/proxypal/proxypal/internal/config"
	"github.com/proxypal/proxypal/internal/proto"
)

func testConfigurer(tb testing.TB) *Configurer {
	tb.Helper()
	cfg := config.Default()
	return NewAt(tb.TempDir(), &cfg)
}

func testModels() []proto.ModelInfo {
	return []proto.ModelInfo{
		{ID: "claude-sonnet-4-5", OwnedBy: "anthropic"},
		{ID: "gemini-2.5-pro", OwnedBy: "google"},
	}
}

func readJSON(tb testing.TB, path string) map[string]any {
	tb.Helper()
	data, err := os.ReadFile(path)
	require.NoError(tb, err)
	var doc map[string]any
	require.NoError(tb, json.Unmarshal(data, &doc))
	return doc
}

func TestConfigureClaudeCode(t *testing.T) {
	c := testConfigurer(t)
	res, err := c.Configure(ClaudeCode, nil)
	require.NoError(t, err)

	require.Equal(t, TypeEnv, res.ConfigType)
	require.Contains(t, res.ShellConfig, claudeCodeHeader)
	require.Contains(t, res.ShellConfig, `export ANTHROPIC_BASE_URL="http://127.0.0.1:8317"`)
	require.Contains(t, res.ShellConfig, `export ANTHROPIC_AUTH_TOKEN="proxypal-local"`)
	require.Contains(t, res.ShellConfig, `export ANTHROPIC_MODEL="claude-sonnet-4-5-20250929"`)
	require.Contains(t, res.Instructions, "restart your terminal")
}

func TestConfigureGeminiCLI(t *testing.T) {
	c := testConfigurer(t)
	res, err := c.Configure(GeminiCLI, nil)
	require.NoError(t, err)

	require.Equal(t, TypeEnv, res.ConfigType)
	require.Contains(t, res.ShellConfig, `export CODE_ASSIST_ENDPOINT="http://127.0.0.1:8317"`)
	// API key mode ships commented out
	require.Contains(t, res.ShellConfig, `# export GEMINI_API_KEY="proxypal-local"`)
}

func TestConfigureCodexFresh(t *testing.T) {
	c := testConfigurer(t)
	res, err := c.Configure(Codex, nil)
	require.NoError(t, err)

	require.Equal(t, TypeFile, res.ConfigType)
	require.Equal(t, filepath.Join(c.home, ".codex", "config.toml"), res.ConfigPath)

	data, err := os.ReadFile(res.ConfigPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "# ProxyPal - Codex Configuration")
	require.Contains(t, string(data), `model = "gpt-5-codex"`)
	require.Contains(t, string(data), `base_url = "http://127.0.0.1:8317/v1"`)
	require.Contains(t, string(data), `wire_api = "responses"`)

	auth, err := os.ReadFile(res.AuthPath)
	require.NoError(t, err)
	require.JSONEq(t, `{"OPENAI_API_KEY": "proxypal-local"}`, string(auth))
}

func TestConfigureCodexKeepsExistingKeys(t *testing.T) {
	c := testConfigurer(t)
	dir := filepath.Join(c.home, ".codex")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	existing := `approval_policy = "never"
model = "gpt-4o"

[model_providers.mine]
name = "mine"
base_url = "https://example.com/v1"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(existing), 0o644))

	res, err := c.Configure(Codex, nil)
	require.NoError(t, err)

	var doc map[string]any
	data, err := os.ReadFile(res.ConfigPath)
	require.NoError(t, err)
	require.NoError(t, toml.Unmarshal(data, &doc))

	require.Equal(t, "never", doc["approval_policy"])
	require.Equal(t, codexModel, doc["model"])
	require.Equal(t, codexProvider, doc["model_provider"])

	providers, ok := doc["model_providers"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, providers, "mine")
	ours, ok := providers[codexProvider].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "http://127.0.0.1:8317/v1", ours["base_url"])
}

func TestConfigureDroid(t *testing.T) {
	c := testConfigurer(t)
	dir := filepath.Join(c.home, ".factory")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	existing := `{
  "theme": "dark",
  "custom_models": [
    {"model": "my-own", "base_url": "https://example.com", "api_key": "sk-user"},
    {"model": "stale", "base_url": "http://127.0.0.1:8317", "api_key": "proxypal-local"}
  ]
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(existing), 0o644))

	res, err := c.Configure(FactoryDroid, testModels())
	require.NoError(t, err)
	require.Equal(t, 2, res.ModelsConfigured)

	doc := readJSON(t, res.ConfigPath)
	require.Equal(t, "dark", doc["theme"])

	models, ok := doc["custom_models"].([]any)
	require.True(t, ok)
	require.Len(t, models, 3) // user model + two of ours, stale entry replaced

	first := models[0].(map[string]any)
	require.Equal(t, "my-own", first["model"])

	claude := models[1].(map[string]any)
	require.Equal(t, "claude-sonnet-4-5", claude["model"])
	require.Equal(t, "http://127.0.0.1:8317", claude["base_url"])
	require.Equal(t, "anthropic", claude["provider"])
	require.EqualValues(t, 64000, claude["max_tokens"])

	gemini := models[2].(map[string]any)
	require.Equal(t, "http://127.0.0.1:8317/v1", gemini["base_url"])
	require.Equal(t, "openai", gemini["provider"])
	require.EqualValues(t, 65536, gemini["max_tokens"])
}

func TestConfigureAmp(t *testing.T) {
	c := testConfigurer(t)
	path := c.AmpSettingsPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	existing := `{
  "editor.theme": "dark",
  "amp.modelMapping": {"gpt-5": "claude-sonnet-4-5"}
}`
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))

	res, err := c.Configure(AmpCLI, nil)
	require.NoError(t, err)
	require.Equal(t, TypeBoth, res.ConfigType)
	require.Contains(t, res.ShellConfig, `export AMP_URL="http://localhost:8317"`)

	doc := readJSON(t, path)
	require.Equal(t, "http://localhost:8317", doc["amp.url"])
	require.Equal(t, "proxypal-local", doc["amp.apiKey"])
	require.Equal(t, true, doc["amp.anthropic.thinking.enabled"])
	require.EqualValues(t, 300, doc["amp.tools.stopTimeout"])
	require.Equal(t, "dark", doc["editor.theme"])
	require.NotContains(t, doc, "amp.modelMapping")
}

func TestConfigureOpenCode(t *testing.T) {
	c := testConfigurer(t)
	c.cfg.ThinkingBudgetMode = config.BudgetCustom
	c.cfg.ThinkingBudgetCustom = 60000

	models := append(testModels(), proto.ModelInfo{ID: "claude-sonnet-4-5-thinking", OwnedBy: "anthropic"})
	res, err := c.Configure(OpenCode, models)
	require.NoError(t, err)
	require.Equal(t, 3, res.ModelsConfigured)

	doc := readJSON(t, res.ConfigPath)
	require.Equal(t, "https://opencode.ai/config.json", doc["$schema"])

	provider := doc["provider"].(map[string]any)["proxypal"].(map[string]any)
	require.Equal(t, "@ai-sdk/anthropic", provider["npm"])
	require.Equal(t, "ProxyPal", provider["name"])
	require.Equal(t, "http://127.0.0.1:8317/v1", provider["options"].(map[string]any)["baseURL"])

	entries := provider["models"].(map[string]any)
	sonnet := entries["claude-sonnet-4-5"].(map[string]any)
	require.Equal(t, "Claude Sonnet 4 5", sonnet["name"])
	require.EqualValues(t, 200000, sonnet["limit"].(map[string]any)["context"])
	require.EqualValues(t, 64000, sonnet["limit"].(map[string]any)["output"])
	require.NotContains(t, sonnet, "reasoning")

	thinking := entries["claude-sonnet-4-5-thinking"].(map[string]any)
	require.Equal(t, true, thinking["reasoning"])
	budget := thinking["options"].(map[string]any)["thinking"].(map[string]any)["budgetTokens"]
	require.EqualValues(t, 60000, budget)
	// output limit grows to make room for thinking plus the response
	require.EqualValues(t, 68192, thinking["limit"].(map[string]any)["output"])
}

func TestConfigureOpenCodeMergesExisting(t *testing.T) {
	c := testConfigurer(t)
	dir := filepath.Join(c.home, ".config", "opencode")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	existing := `{"theme": "tokyonight", "provider": {"mine": {"npm": "@ai-sdk/openai"}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "opencode.json"), []byte(existing), 0o644))

	res, err := c.Configure(OpenCode, testModels())
	require.NoError(t, err)

	doc := readJSON(t, res.ConfigPath)
	require.Equal(t, "tokyonight", doc["theme"])
	providers := doc["provider"].(map[string]any)
	require.Contains(t, providers, "mine")
	require.Contains(t, providers, "proxypal")
}

func TestConfigureContinueFresh(t *testing.T) {
	c := testConfigurer(t)
	res, err := c.Configure(Continue, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(res.ConfigPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "# Continue configuration - Auto-configured by ProxyPal")
	require.Contains(t, string(data), "name: ProxyPal (Auto-routed)")
	require.Contains(t, string(data), "apiBase: http://localhost:8317/v1")

	// second run is a no-op
	res, err = c.Configure(Continue, nil)
	require.NoError(t, err)
	require.Contains(t, res.Instructions, "already configured")
}

func TestConfigureContinueAppendsToExisting(t *testing.T) {
	c := testConfigurer(t)
	dir := filepath.Join(c.home, ".continue")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	existing := `# my continue setup
name: Personal Config
version: 0.0.1
schema: v1

models:
  - name: Local Llama
    provider: ollama
    model: llama3.1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(existing), 0o644))

	res, err := c.Configure(Continue, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(res.ConfigPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "# my continue setup")
	require.Contains(t, string(data), "# Added by ProxyPal")

	var doc struct {
		Name   string           `yaml:"name"`
		Models []map[string]any `yaml:"models"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Equal(t, "Personal Config", doc.Name)
	require.Len(t, doc.Models, 2)
	require.Equal(t, "Local Llama", doc.Models[0]["name"])
	require.Equal(t, "ProxyPal (Auto-routed)", doc.Models[1]["name"])
	require.Equal(t, "http://localhost:8317/v1", doc.Models[1]["apiBase"])
}

func TestConfigureUnknownAgent(t *testing.T) {
	c := testConfigurer(t)
	_, err := c.Configure("emacs", nil)
	require.ErrorContains(t, err, "unknown agent")
}
