package copilot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proxypal/proxypal/internal/config"
)

func TestGitHubTokenPrefersConfig(t *testing.T) {
	token, err := GitHubToken(config.CopilotConfig{GitHubToken: "ghu_configured"})
	require.NoError(t, err)
	require.Equal(t, "ghu_configured", token)
}

func TestCachedGitHubToken(t *testing.T) {
	t.Run("apps.json current layout", func(t *testing.T) {
		dir := t.TempDir()
		writeJSON(t, filepath.Join(dir, "apps.json"),
			`{"github.com:Iv1.b507a08c87ecfe98":{"user":"pal","oauth_token":"ghu_apps"}}`)

		token, err := cachedGitHubToken(dir)
		require.NoError(t, err)
		require.Equal(t, "ghu_apps", token)
	})

	t.Run("hosts.json legacy layout", func(t *testing.T) {
		dir := t.TempDir()
		writeJSON(t, filepath.Join(dir, "hosts.json"),
			`{"github.com":{"user":"pal","oauth_token":"ghu_hosts"}}`)

		token, err := cachedGitHubToken(dir)
		require.NoError(t, err)
		require.Equal(t, "ghu_hosts", token)
	})

	t.Run("apps.json wins over hosts.json", func(t *testing.T) {
		dir := t.TempDir()
		writeJSON(t, filepath.Join(dir, "apps.json"),
			`{"github.com:Iv1.x":{"oauth_token":"ghu_new"}}`)
		writeJSON(t, filepath.Join(dir, "hosts.json"),
			`{"github.com":{"oauth_token":"ghu_old"}}`)

		token, err := cachedGitHubToken(dir)
		require.NoError(t, err)
		require.Equal(t, "ghu_new", token)
	})

	t.Run("other hosts are ignored", func(t *testing.T) {
		dir := t.TempDir()
		writeJSON(t, filepath.Join(dir, "hosts.json"),
			`{"ghe.example.com":{"oauth_token":"ghu_enterprise"}}`)

		_, err := cachedGitHubToken(dir)
		require.Error(t, err)
	})

	t.Run("empty cache dir", func(t *testing.T) {
		_, err := cachedGitHubToken(t.TempDir())
		require.Error(t, err)
	})
}

func writeJSON(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
