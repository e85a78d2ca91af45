// Package agents writes the client-side configuration that points CLI coding
// agents at the local proxy.
//
// Each agent gets its configuration the way it expects it: environment
// exports for Claude Code and Gemini CLI, config files for Codex, Factory
// Droid, OpenCode, and Continue, and a merged settings.json for Amp. File
// merges preserve whatever else the user already has in there.
package agents

import (
	"fmt"
	"os"

	"github.com/proxypal/proxypal/internal/config"
	"github.com/proxypal/proxypal/internal/proto"
	"github.com/proxypal/proxypal/internal/proxyconfig"
)

// Agent identifiers accepted by Configure.
const (
	ClaudeCode   = "claude-code"
	Codex        = "codex"
	GeminiCLI    = "gemini-cli"
	FactoryDroid = "factory-droid"
	AmpCLI       = "amp-cli"
	OpenCode     = "opencode"
	Continue     = "continue"
)

// All lists the configurable agents in display order.
var All = []string{ClaudeCode, Codex, GeminiCLI, FactoryDroid, AmpCLI, OpenCode, Continue}

// Values for Result.ConfigType.
const (
	TypeEnv  = "env"  // shell exports only
	TypeFile = "file" // config files written
	TypeBoth = "both" // files written, with exports offered as an alternative
)

// Result describes what Configure wrote and what the user still has to do.
type Result struct {
	Agent            string `json:"agent"`
	ConfigType       string `json:"configType"`
	ShellConfig      string `json:"shellConfig,omitempty"`
	ConfigPath       string `json:"configPath,omitempty"`
	AuthPath         string `json:"authPath,omitempty"`
	ModelsConfigured int    `json:"modelsConfigured,omitempty"`
	Instructions     string `json:"instructions"`
}

// Configurer writes agent configuration under a home directory.
type Configurer struct {
	home string
	cfg  *config.Config
}

// New makes a Configurer for the current user's home directory.
func New(cfg *config.Config) (*Configurer, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not find home directory: %w", err)
	}
	return NewAt(home, cfg), nil
}

// NewAt is New with an explicit home directory, mostly for tests.
func NewAt(home string, cfg *config.Config) *Configurer {
	return &Configurer{home: home, cfg: cfg}
}

// Configure writes the named agent's configuration. The models listing is
// used by agents that enumerate models in their config files.
func (c *Configurer) Configure(agent string, models []proto.ModelInfo) (*Result, error) {
	switch agent {
	case ClaudeCode:
		return c.configureClaudeCode()
	case Codex:
		return c.configureCodex()
	case GeminiCLI:
		return c.configureGeminiCLI()
	case FactoryDroid:
		return c.configureDroid(models)
	case AmpCLI:
		return c.configureAmp()
	case OpenCode:
		return c.configureOpenCode(models)
	case Continue:
		return c.configureContinue()
	default:
		return nil, fmt.Errorf("unknown agent: %s", agent)
	}
}

const restartShell = "Add the above to your ~/.bashrc, ~/.zshrc, or shell config file, then restart your terminal."

// Header comments of the generated export blocks, also used to recognize an
// already-configured shell profile.
const (
	claudeCodeHeader = "# ProxyPal - Claude Code Configuration"
	geminiCLIHeader  = "# ProxyPal - Gemini CLI Configuration"
)

// Model pins handed to Claude Code. The proxy serves these IDs regardless of
// which upstream account actually answers.
const (
	claudeOpusPin   = "claude-opus-4-1-20250805"
	claudeSonnetPin = "claude-sonnet-4-5-20250929"
	claudeHaikuPin  = "claude-3-5-haiku-20241022"
)

func (c *Configurer) configureClaudeCode() (*Result, error) {
	shell := fmt.Sprintf(`%s
export ANTHROPIC_BASE_URL="%s"
export ANTHROPIC_AUTH_TOKEN="%s"
# For Claude Code 2.x
export ANTHROPIC_DEFAULT_OPUS_MODEL="%s"
export ANTHROPIC_DEFAULT_SONNET_MODEL="%s"
export ANTHROPIC_DEFAULT_HAIKU_MODEL="%s"
# For Claude Code 1.x
export ANTHROPIC_MODEL="%s"
export ANTHROPIC_SMALL_FAST_MODEL="%s"
`,
		claudeCodeHeader, c.cfg.Endpoint(), proxyconfig.LocalAPIKey,
		claudeOpusPin, claudeSonnetPin, claudeHaikuPin,
		claudeSonnetPin, claudeHaikuPin)

	return &Result{
		Agent:        ClaudeCode,
		ConfigType:   TypeEnv,
		ShellConfig:  shell,
		Instructions: restartShell,
	}, nil
}

func (c *Configurer) configureGeminiCLI() (*Result, error) {
	shell := fmt.Sprintf(`%s
# Option 1: OAuth mode (local only)
export CODE_ASSIST_ENDPOINT="%s"

# Option 2: API Key mode (works with any IP/domain)
# export GOOGLE_GEMINI_BASE_URL="%s"
# export GEMINI_API_KEY="%s"
`,
		geminiCLIHeader, c.cfg.Endpoint(), c.cfg.Endpoint(), proxyconfig.LocalAPIKey)

	return &Result{
		Agent:        GeminiCLI,
		ConfigType:   TypeEnv,
		ShellConfig:  shell,
		Instructions: restartShell,
	}, nil
}
