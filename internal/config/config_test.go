package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfigPath(tb testing.TB) string {
	tb.Helper()
	return filepath.Join(tb.TempDir(), "config.json")
}

func TestEnsureFirstRun(t *testing.T) {
	path := testConfigPath(t)
	c, err := EnsureAt(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, 8317, c.Port)
	require.True(t, c.AutoStart)
	require.True(t, c.UsageStatsEnabled)
	require.False(t, c.LoggingToFile)
	require.Equal(t, 1, c.ConfigVersion)
	require.Equal(t, RoutingMappings, c.AmpRoutingMode)
	require.Equal(t, BudgetMedium, c.ThinkingBudgetMode)
	require.Equal(t, 4141, c.Copilot.Port)
	require.Equal(t, "individual", c.Copilot.AccountType)
}

func TestEnsurePartialFile(t *testing.T) {
	path := testConfigPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 9000, "debug": true}`), 0o600))

	c, err := EnsureAt(path)
	require.NoError(t, err)
	require.Equal(t, 9000, c.Port)
	require.True(t, c.Debug)
	// absent keys keep their defaults
	require.True(t, c.UsageStatsEnabled)
	require.True(t, c.AutoStart)
	require.Equal(t, RoutingMappings, c.AmpRoutingMode)
	require.Equal(t, 16000, c.ThinkingBudgetCustom)
}

func TestMappingEnabledDefault(t *testing.T) {
	path := testConfigPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(`{
		"ampModelMappings": [
			{"from": "gpt-5", "to": "claude-sonnet-4-5"},
			{"from": "o3", "to": "gemini-2.5-pro", "enabled": false}
		]
	}`), 0o600))

	c, err := EnsureAt(path)
	require.NoError(t, err)
	require.Len(t, c.AmpModelMappings, 2)
	require.True(t, c.AmpModelMappings[0].Enabled)
	require.False(t, c.AmpModelMappings[1].Enabled)
	require.Len(t, c.EnabledMappings(), 1)
}

func TestMigrateLegacyProvider(t *testing.T) {
	path := testConfigPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(`{
		"ampOpenaiProvider": {
			"name": "ollama",
			"baseUrl": "http://localhost:11434/v1",
			"apiKey": "ollama",
			"models": [{"name": "qwen3:8b"}]
		}
	}`), 0o600))

	c, err := EnsureAt(path)
	require.NoError(t, err)
	require.Nil(t, c.AmpOpenAIProvider)
	require.Len(t, c.AmpOpenAIProviders, 1)
	require.Equal(t, "ollama", c.AmpOpenAIProviders[0].Name)
	require.NotEmpty(t, c.AmpOpenAIProviders[0].ID)

	// the migration is persisted
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(content), `"ampOpenaiProvider"`)
	require.Contains(t, string(content), `"ampOpenaiProviders"`)
}

func TestMigrateProviderIDs(t *testing.T) {
	path := testConfigPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(`{
		"ampOpenaiProviders": [
			{"name": "lmstudio", "baseUrl": "http://localhost:1234/v1", "apiKey": "x", "models": []}
		]
	}`), 0o600))

	c, err := EnsureAt(path)
	require.NoError(t, err)
	require.Len(t, c.AmpOpenAIProviders, 1)
	require.NotEmpty(t, c.AmpOpenAIProviders[0].ID)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PROXYPAL_PORT", "9999")
	t.Setenv("PROXYPAL_DEBUG", "true")
	c, err := EnsureAt(testConfigPath(t))
	require.NoError(t, err)
	require.Equal(t, 9999, c.Port)
	require.True(t, c.Debug)
}

func TestPortFallback(t *testing.T) {
	path := testConfigPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 0}`), 0o600))
	c, err := EnsureAt(path)
	require.NoError(t, err)
	require.Equal(t, 8317, c.Port)
}

func TestSaveRoundtrip(t *testing.T) {
	path := testConfigPath(t)
	c, err := EnsureAt(path)
	require.NoError(t, err)

	c.AmpAPIKey = "sgamp_test"
	c.ClaudeAPIKeys = append(c.ClaudeAPIKeys, APIKeyEntry{
		APIKey:  "sk-ant-test",
		BaseURL: "https://api.anthropic.com",
	})
	require.NoError(t, c.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := EnsureAt(path)
	require.NoError(t, err)
	require.Equal(t, "sgamp_test", again.AmpAPIKey)
	require.Len(t, again.ClaudeAPIKeys, 1)
	require.Equal(t, "sk-ant-test", again.ClaudeAPIKeys[0].APIKey)
}

func TestThinkingBudgetTokens(t *testing.T) {
	for name, tt := range map[string]struct {
		mode   string
		custom int
		want   int
	}{
		"empty":        {"", 0, 8192},
		"low":          {BudgetLow, 0, 2048},
		"medium":       {BudgetMedium, 0, 8192},
		"high":         {BudgetHigh, 0, 32768},
		"custom":       {BudgetCustom, 5000, 5000},
		"custom unset": {BudgetCustom, 0, 16000},
		"bogus":        {"turbo", 0, 8192},
	} {
		t.Run(name, func(t *testing.T) {
			c := Config{ThinkingBudgetMode: tt.mode, ThinkingBudgetCustom: tt.custom}
			require.Equal(t, tt.want, c.ThinkingBudgetTokens())
		})
	}
}
