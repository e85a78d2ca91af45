package proxyconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/x/exp/golden"
	"github.com/stretchr/testify/require"

	"github.com/proxypal/proxypal/internal/config"
)

func fullConfig() config.Config {
	c := config.Default()
	c.Port = 9000
	c.Debug = true
	c.RequestRetry = 3
	c.ProxyURL = "socks5://127.0.0.1:1080"
	c.QuotaSwitchProject = true
	c.AmpAPIKey = "sgamp_0123"
	c.AmpModelMappings = []config.ModelMapping{
		{From: "claude-opus-4-5-20251101", To: "copilot-gpt-5-mini", Enabled: true},
		{From: "gpt-5", To: "qwen3:8b", Enabled: false},
	}
	c.AmpOpenAIProviders = []config.OpenAIProvider{
		{
			ID:      "p1",
			Name:    "ollama",
			BaseURL: "http://localhost:11434/v1",
			APIKey:  "ollama",
			Models:  []config.ProviderModel{{Name: "qwen3:8b", Alias: "qwen3"}},
		},
		// missing base URL, must not be written
		{ID: "p2", Name: "incomplete", APIKey: "x"},
	}
	c.Copilot.Enabled = true
	c.ClaudeAPIKeys = []config.APIKeyEntry{
		{APIKey: "sk-ant-123", BaseURL: "https://api.anthropic.com"},
	}
	c.GeminiAPIKeys = []config.APIKeyEntry{{APIKey: "AIza-456"}}
	c.CodexAPIKeys = []config.APIKeyEntry{
		{APIKey: "sk-789", ProxyURL: "http://proxy:8080"},
	}
	c.ThinkingBudgetMode = config.BudgetCustom
	c.ThinkingBudgetCustom = 24000
	return c
}

func TestRenderDefault(t *testing.T) {
	c := config.Default()
	out, err := Render(&c)
	require.NoError(t, err)
	golden.RequireEqual(t, out)
}

func TestRenderFull(t *testing.T) {
	c := fullConfig()
	out, err := Render(&c)
	require.NoError(t, err)
	require.NotContains(t, string(out), "incomplete")
	golden.RequireEqual(t, out)
}

func TestWrite(t *testing.T) {
	c := config.Default()
	c.SettingsPath = filepath.Join(t.TempDir(), "config.json")

	path, err := Write(&c)
	require.NoError(t, err)
	require.Equal(t, c.GeneratedYAMLPath(), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	want, err := Render(&c)
	require.NoError(t, err)
	require.Equal(t, want, content)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
