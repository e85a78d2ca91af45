package agents

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/proxypal/proxypal/internal/proxyconfig"
)

// DetectedTool is an installed tool that can be pointed at the proxy.
type DetectedTool struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Installed        bool   `json:"installed"`
	Configured       bool   `json:"configured"`
	ConfigPath       string `json:"configPath,omitempty"`
	CanAutoConfigure bool   `json:"canAutoConfigure"`
}

// cliAgents maps configurable agents to the binary looked up on PATH.
var cliAgents = []struct {
	id, name, binary string
}{
	{ClaudeCode, "Claude Code", "claude"},
	{Codex, "Codex", "codex"},
	{GeminiCLI, "Gemini CLI", "gemini"},
	{FactoryDroid, "Factory Droid", "droid"},
	{AmpCLI, "Amp", "amp"},
	{OpenCode, "OpenCode", "opencode"},
}

// Detect reports every tool ProxyPal knows how to integrate with: the CLI
// agents Configure handles plus the editor integrations.
func (c *Configurer) Detect() []DetectedTool {
	tools := c.DetectCLI()
	return append(tools, c.detectEditors(runtime.GOOS)...)
}

// DetectCLI reports which agent CLIs are on PATH and whether their config
// already points at the proxy.
func (c *Configurer) DetectCLI() []DetectedTool {
	tools := make([]DetectedTool, 0, len(cliAgents))
	for _, a := range cliAgents {
		_, err := exec.LookPath(a.binary)
		tools = append(tools, DetectedTool{
			ID:               a.id,
			Name:             a.name,
			Installed:        err == nil,
			Configured:       c.Configured(a.id),
			ConfigPath:       c.configPath(a.id),
			CanAutoConfigure: true,
		})
	}
	return tools
}

// Configured reports whether the agent's config already points at ProxyPal.
func (c *Configurer) Configured(agent string) bool {
	switch agent {
	case ClaudeCode:
		return fileContains(c.ProfilePath(), claudeCodeHeader)
	case GeminiCLI:
		return fileContains(c.ProfilePath(), geminiCLIHeader)
	case Codex:
		return fileContains(filepath.Join(c.home, ".codex", "config.toml"), codexProvider)
	case FactoryDroid:
		return fileContains(filepath.Join(c.home, ".factory", "config.json"), proxyconfig.LocalAPIKey)
	case AmpCLI:
		return fileContains(c.AmpSettingsPath(), proxyconfig.LocalAPIKey)
	case OpenCode:
		return fileContains(filepath.Join(c.home, ".config", "opencode", "opencode.json"), "proxypal")
	case Continue:
		return fileContains(filepath.Join(c.home, ".continue", "config.yaml"), "ProxyPal")
	default:
		return false
	}
}

// configPath is where Configure writes, or for env agents, the shell profile
// the exports belong in.
func (c *Configurer) configPath(agent string) string {
	switch agent {
	case ClaudeCode, GeminiCLI:
		return c.ProfilePath()
	case Codex:
		return filepath.Join(c.home, ".codex", "config.toml")
	case FactoryDroid:
		return filepath.Join(c.home, ".factory", "config.json")
	case AmpCLI:
		return c.AmpSettingsPath()
	case OpenCode:
		return filepath.Join(c.home, ".config", "opencode", "opencode.json")
	case Continue:
		return filepath.Join(c.home, ".continue", "config.yaml")
	default:
		return ""
	}
}

// detectEditors checks for editors whose extensions can talk to the proxy.
// Cursor and Windsurf ship their own model settings without a custom base
// URL field, so they are reported but not auto-configurable.
func (c *Configurer) detectEditors(goos string) []DetectedTool {
	vscode := anyPathExists(vscodePaths(goos))

	continueDir := filepath.Join(c.home, ".continue")
	continueYAML := filepath.Join(continueDir, "config.yaml")
	continueJSON := filepath.Join(continueDir, "config.json")
	continueConfig := continueYAML
	if !pathExists(continueYAML) && pathExists(continueJSON) {
		continueConfig = continueJSON
	}

	return []DetectedTool{
		{
			ID:        "cursor",
			Name:      "Cursor",
			Installed: anyPathExists(cursorPaths(c.home, goos)),
		},
		{
			ID:               "continue",
			Name:             "Continue",
			Installed:        vscode || pathExists(continueDir),
			Configured:       c.Configured(Continue),
			ConfigPath:       continueConfig,
			CanAutoConfigure: true,
		},
		{
			ID:        "cline",
			Name:      "Cline",
			Installed: vscode || pathExists(clineStoragePath(c.home, goos)),
		},
		{
			ID:        "windsurf",
			Name:      "Windsurf",
			Installed: anyPathExists(windsurfPaths(goos)),
		},
	}
}

func cursorPaths(home, goos string) []string {
	switch goos {
	case "darwin":
		return []string{"/Applications/Cursor.app"}
	case "windows":
		return []string{filepath.Join(os.Getenv("LOCALAPPDATA"), "Programs", "cursor", "Cursor.exe")}
	default:
		return []string{
			filepath.Join(home, ".local", "share", "applications", "cursor.desktop"),
			"/usr/share/applications/cursor.desktop",
		}
	}
}

func vscodePaths(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"/Applications/Visual Studio Code.app"}
	case "windows":
		return []string{filepath.Join(os.Getenv("LOCALAPPDATA"), "Programs", "Microsoft VS Code", "Code.exe")}
	default:
		return []string{"/usr/bin/code"}
	}
}

func clineStoragePath(home, goos string) string {
	const storage = "saoudrizwan.claude-dev"
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Code", "User", "globalStorage", storage)
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Code", "User", "globalStorage", storage)
	default:
		return filepath.Join(home, ".config", "Code", "User", "globalStorage", storage)
	}
}

func windsurfPaths(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"/Applications/Windsurf.app"}
	case "windows":
		return []string{filepath.Join(os.Getenv("LOCALAPPDATA"), "Programs", "Windsurf", "Windsurf.exe")}
	default:
		return []string{"/usr/bin/windsurf"}
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func anyPathExists(paths []string) bool {
	for _, p := range paths {
		if pathExists(p) {
			return true
		}
	}
	return false
}

func fileContains(path, needle string) bool {
	data, err := os.ReadFile(path)
	return err == nil && strings.Contains(string(data), needle)
}
