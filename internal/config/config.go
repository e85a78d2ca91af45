// Package config loads, migrates, and persists ProxyPal's settings.
//
// Settings live in config.json inside the ProxyPal config directory and use
// camelCase keys. Every field can be overridden through the environment with
// a PROXYPAL_ prefix, e.g. PROXYPAL_PORT=9000.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v9"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
)

// Thinking budget modes.
const (
	BudgetLow    = "low"
	BudgetMedium = "medium"
	BudgetHigh   = "high"
	BudgetCustom = "custom"
)

// Amp routing modes.
const (
	RoutingMappings = "mappings"
	RoutingOpenAI   = "openai"
)

// ModelMapping routes one Amp model request to another model served by the
// proxy.
type ModelMapping struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Enabled bool   `json:"enabled"`
}

// UnmarshalJSON keeps mappings from older configs enabled by default.
func (m *ModelMapping) UnmarshalJSON(data []byte) error {
	type alias ModelMapping
	aux := alias{Enabled: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err //nolint:wrapcheck
	}
	*m = ModelMapping(aux)
	return nil
}

// ProviderModel is a model exposed by an OpenAI-compatible provider, with an
// optional alias it is published under.
type ProviderModel struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

// OpenAIProvider is a custom OpenAI-compatible upstream.
type OpenAIProvider struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	BaseURL string          `json:"baseUrl"`
	APIKey  string          `json:"apiKey"`
	Models  []ProviderModel `json:"models"`
}

// Valid reports whether the provider has everything needed to be written into
// the proxy configuration.
func (p OpenAIProvider) Valid() bool {
	return p.Name != "" && p.BaseURL != "" && p.APIKey != ""
}

// APIKeyEntry is a stored upstream API key for the claude, gemini, or codex
// sections of the proxy configuration.
type APIKeyEntry struct {
	APIKey         string            `json:"apiKey"`
	BaseURL        string            `json:"baseUrl,omitempty"`
	ProxyURL       string            `json:"proxyUrl,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Models         []ProviderModel   `json:"models,omitempty"`
	ExcludedModels []string          `json:"excludedModels,omitempty"`
}

// CopilotConfig configures the optional copilot-api sidecar.
type CopilotConfig struct {
	Enabled       bool   `json:"enabled"`
	Port          int    `json:"port"`
	AccountType   string `json:"accountType"`
	GitHubToken   string `json:"githubToken"`
	RateLimit     int    `json:"rateLimit,omitempty"`
	RateLimitWait bool   `json:"rateLimitWait"`
}

// UnmarshalJSON fills in the defaults for fields older configs don't have.
func (c *CopilotConfig) UnmarshalJSON(data []byte) error {
	type alias CopilotConfig
	aux := alias(defaultCopilot())
	if err := json.Unmarshal(data, &aux); err != nil {
		return err //nolint:wrapcheck
	}
	*c = CopilotConfig(aux)
	return nil
}

func defaultCopilot() CopilotConfig {
	return CopilotConfig{
		Port:        4141,
		AccountType: "individual",
	}
}

// Config is ProxyPal's persisted application configuration.
type Config struct {
	Port                    int              `json:"port" env:"PORT"`
	AutoStart               bool             `json:"autoStart" env:"AUTO_START"`
	LaunchAtLogin           bool             `json:"launchAtLogin"`
	Debug                   bool             `json:"debug" env:"DEBUG"`
	ProxyURL                string           `json:"proxyUrl" env:"PROXY_URL"`
	RequestRetry            int              `json:"requestRetry" env:"REQUEST_RETRY"`
	QuotaSwitchProject      bool             `json:"quotaSwitchProject"`
	QuotaSwitchPreviewModel bool             `json:"quotaSwitchPreviewModel"`
	UsageStatsEnabled       bool             `json:"usageStatsEnabled" env:"USAGE_STATS_ENABLED"`
	RequestLogging          bool             `json:"requestLogging" env:"REQUEST_LOGGING"`
	LoggingToFile           bool             `json:"loggingToFile" env:"LOGGING_TO_FILE"`
	ConfigVersion           int              `json:"configVersion"`
	AmpAPIKey               string           `json:"ampApiKey" env:"AMP_API_KEY"`
	AmpModelMappings        []ModelMapping   `json:"ampModelMappings"`
	AmpOpenAIProvider       *OpenAIProvider  `json:"ampOpenaiProvider,omitempty"` // deprecated, migrated into AmpOpenAIProviders
	AmpOpenAIProviders      []OpenAIProvider `json:"ampOpenaiProviders"`
	AmpRoutingMode          string           `json:"ampRoutingMode" env:"AMP_ROUTING_MODE"`
	Copilot                 CopilotConfig    `json:"copilot"`
	ForceModelMappings      bool             `json:"forceModelMappings"`
	ClaudeAPIKeys           []APIKeyEntry    `json:"claudeApiKeys"`
	GeminiAPIKeys           []APIKeyEntry    `json:"geminiApiKeys"`
	CodexAPIKeys            []APIKeyEntry    `json:"codexApiKeys"`
	ThinkingBudgetMode      string           `json:"thinkingBudgetMode" env:"THINKING_BUDGET_MODE"`
	ThinkingBudgetCustom    int              `json:"thinkingBudgetCustom"`

	// SettingsPath is where this config was loaded from.
	SettingsPath string `json:"-"`
	// SidecarCommand optionally overrides how the proxy binary is launched,
	// e.g. "cliproxyapi --verbose". Parsed with shell word splitting.
	SidecarCommand string `json:"sidecarCommand,omitempty" env:"SIDECAR_CMD"`
}

// UnmarshalJSON decodes on top of the defaults so absent keys keep their
// documented default values.
func (c *Config) UnmarshalJSON(data []byte) error {
	type alias Config
	aux := alias(Default())
	if err := json.Unmarshal(data, &aux); err != nil {
		return err //nolint:wrapcheck
	}
	*c = Config(aux)
	return nil
}

// Default returns the configuration a fresh install starts with.
func Default() Config {
	return Config{
		Port:                 8317,
		AutoStart:            true,
		UsageStatsEnabled:    true,
		ConfigVersion:        1,
		AmpRoutingMode:       RoutingMappings,
		Copilot:              defaultCopilot(),
		ThinkingBudgetMode:   BudgetMedium,
		ThinkingBudgetCustom: 16000,
	}
}

// ThinkingBudgetTokens resolves the thinking budget for claude models served
// through the gemini mapping.
func (c *Config) ThinkingBudgetTokens() int {
	custom := c.ThinkingBudgetCustom
	if custom <= 0 {
		custom = 16000
	}
	switch c.ThinkingBudgetMode {
	case BudgetLow:
		return 2048
	case BudgetHigh:
		return 32768
	case BudgetCustom:
		return custom
	default:
		return 8192
	}
}

// ThinkingBudgetModeDisplay is the mode name shown to users, accounting for
// the medium default.
func (c *Config) ThinkingBudgetModeDisplay() string {
	if c.ThinkingBudgetMode == "" {
		return BudgetMedium
	}
	return c.ThinkingBudgetMode
}

// EnabledMappings returns only the Amp model mappings that are switched on.
func (c *Config) EnabledMappings() []ModelMapping {
	var out []ModelMapping
	for _, m := range c.AmpModelMappings {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

// Ensure loads the configuration, creating it with defaults on first run.
func Ensure() (*Config, error) {
	path, err := settingsPath()
	if err != nil {
		return nil, fmt.Errorf("could not find settings path: %w", err)
	}
	return EnsureAt(path)
}

// EnsureAt is Ensure with an explicit settings path, mostly for tests.
func EnsureAt(path string) (*Config, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("could not create config directory: %w", err)
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		def := Default()
		def.SettingsPath = path
		if err := def.Save(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("could not stat settings file: %w", err)
	}

	c, err := load(path)
	if err != nil {
		return nil, err
	}

	if c.migrate() {
		if err := c.Save(); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(c, env.Options{Prefix: "PROXYPAL_"}); err != nil {
		return nil, fmt.Errorf("could not parse environment into settings: %w", err)
	}

	if c.Port <= 0 {
		c.Port = 8317
	}

	return c, nil
}

func load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read settings file: %w", err)
	}
	var c Config
	if err := json.Unmarshal(content, &c); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	c.SettingsPath = path
	return &c, nil
}

// migrate reshapes legacy configs in place and reports whether anything
// changed.
func (c *Config) migrate() bool {
	var changed bool

	if c.AmpOpenAIProvider != nil {
		// first-time migration only: a populated list wins over the
		// deprecated single provider
		if len(c.AmpOpenAIProviders) == 0 {
			p := *c.AmpOpenAIProvider
			if p.ID == "" {
				p.ID = uuid.NewString()
			}
			c.AmpOpenAIProviders = append(c.AmpOpenAIProviders, p)
		}
		c.AmpOpenAIProvider = nil
		changed = true
	}

	for i := range c.AmpOpenAIProviders {
		if c.AmpOpenAIProviders[i].ID == "" {
			c.AmpOpenAIProviders[i].ID = uuid.NewString()
			changed = true
		}
	}

	if c.ConfigVersion == 0 {
		c.ConfigVersion = 1
		changed = true
	}
	if c.AmpRoutingMode == "" {
		c.AmpRoutingMode = RoutingMappings
		changed = true
	}
	if c.ThinkingBudgetMode == "" {
		c.ThinkingBudgetMode = BudgetMedium
		changed = true
	}

	return changed
}

// Save writes the configuration atomically, keeping secrets out of
// world-readable files.
func (c *Config) Save() error {
	if c.SettingsPath == "" {
		return errors.New("settings path not set")
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode settings: %w", err)
	}
	data = append(data, '\n')
	if err := renameio.WriteFile(c.SettingsPath, data, 0o600); err != nil {
		return fmt.Errorf("could not write settings file: %w", err)
	}
	return nil
}
