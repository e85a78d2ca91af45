package copilot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/proxypal/proxypal/internal/config"
)

// GitHubToken resolves the token copilot-api authenticates with: the
// configured one when set, otherwise whatever the official Copilot IDE
// plugins cached on this machine. Without either, copilot-api runs its own
// device flow on first start.
func GitHubToken(cfg config.CopilotConfig) (string, error) {
	if cfg.GitHubToken != "" {
		return cfg.GitHubToken, nil
	}
	return cachedGitHubToken(pluginConfigDir())
}

// pluginConfigDir is where the Copilot IDE plugins keep their token cache.
func pluginConfigDir() string {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, "github-copilot")
		}
		return ""
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "github-copilot")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "github-copilot")
}

// cachedGitHubToken reads the plugin token cache. apps.json is the current
// layout, hosts.json the legacy one.
func cachedGitHubToken(dir string) (string, error) {
	if dir == "" {
		return "", errors.New("no GitHub token configured and no Copilot plugin cache found")
	}
	var lastErr error
	for _, name := range []string{"apps.json", "hosts.json"} {
		token, err := tokenFromFile(filepath.Join(dir, name))
		if err == nil {
			return token, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("no GitHub token available: %w", lastErr)
}

// tokenFromFile pulls the oauth_token for the github.com host. Keys are
// either "github.com" or "github.com:AppId".
func tokenFromFile(path string) (string, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read %s: %w", path, err)
	}
	var hosts map[string]json.RawMessage
	if err := json.Unmarshal(bts, &hosts); err != nil {
		return "", fmt.Errorf("could not parse %s: %w", path, err)
	}
	for key, raw := range hosts {
		if key != "github.com" && !strings.HasPrefix(key, "github.com:") {
			continue
		}
		var entry struct {
			OAuthToken string `json:"oauth_token"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.OAuthToken != "" {
			return entry.OAuthToken, nil
		}
	}
	return "", fmt.Errorf("no oauth_token in %s", path)
}
