package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "proxypal"

func settingsPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appName, "config.json")) //nolint:wrapcheck
}

// Dir is the directory holding config.json, the generated proxy config, and
// the proxy log directory.
func (c *Config) Dir() string {
	return filepath.Dir(c.SettingsPath)
}

// GeneratedYAMLPath is where the proxy configuration is written before the
// sidecar starts.
func (c *Config) GeneratedYAMLPath() string {
	return filepath.Join(c.Dir(), "proxy-config.yaml")
}

// LogDir is where the sidecar writes request logs when request logging is on.
func (c *Config) LogDir() string {
	return filepath.Join(c.Dir(), "logs")
}

// MainLogPath is the sidecar's rotating request log.
func (c *Config) MainLogPath() string {
	return filepath.Join(c.LogDir(), "main.log")
}

// AuthJSONPath stores OAuth tokens ProxyPal manages itself.
func (c *Config) AuthJSONPath() string {
	return filepath.Join(c.Dir(), "auth.json")
}

// AuthDir is the sidecar's token directory. The proxy hardcodes this path, so
// ProxyPal follows it rather than an XDG location.
func AuthDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cli-proxy-api"
	}
	return filepath.Join(home, ".cli-proxy-api")
}

// DataDir holds mutable state such as the request history database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// HistoryDBPath is the sqlite database with per-request history.
func HistoryDBPath() string {
	return filepath.Join(DataDir(), appName+".db")
}

// CachePath is the directory for expiring state: the model catalog and
// pending logins.
func CachePath() string {
	return filepath.Join(xdg.CacheHome, appName)
}

// Endpoint is the local base URL of the proxy.
func (c *Config) Endpoint() string {
	return fmt.Sprintf("http://127.0.0.1:%d", c.Port)
}

// LocalhostEndpoint is the proxy base URL spelled with the localhost
// hostname. Agent configs use this form so they keep working when tools
// resolve localhost to ::1.
func (c *Config) LocalhostEndpoint() string {
	return fmt.Sprintf("http://localhost:%d", c.Port)
}
