// Package proxyconfig renders the YAML configuration the CLIProxyAPI sidecar
// is started with.
//
// The file is regenerated from scratch on every proxy start: CLIProxyAPI
// hashes the management secret-key in place, and ProxyPal needs the plaintext
// key for its Management API calls.
package proxyconfig

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/google/renameio/v2"

	"github.com/proxypal/proxypal/internal/config"
)

// LocalAPIKey authenticates local clients, including Amp, to the proxy.
const LocalAPIKey = "proxypal-local"

// ManagementKey authenticates ProxyPal to the proxy's management API.
const ManagementKey = "proxypal-mgmt-key"

// copilotModels are the aliases published for the copilot-api sidecar and the
// upstream model each one resolves to.
var copilotModels = [][2]string{
	{"copilot-gpt-4.1", "gpt-4.1"},
	{"copilot-gpt-5", "gpt-5"},
	{"copilot-gpt-5-mini", "gpt-5-mini"},
	{"copilot-gpt-5-codex", "gpt-5-codex"},
	{"copilot-gpt-5.1", "gpt-5.1"},
	{"copilot-gpt-5.1-codex", "gpt-5.1-codex"},
	{"copilot-gpt-5.1-codex-mini", "gpt-5.1-codex-mini"},
	{"copilot-gpt-4o", "gpt-4o"},
	{"copilot-gpt-4", "gpt-4"},
	{"copilot-gpt-4-turbo", "gpt-4-turbo"},
	{"copilot-o1", "o1"},
	{"copilot-o1-mini", "o1-mini"},
	{"copilot-grok-code-fast-1", "grok-code-fast-1"},
	{"copilot-raptor-mini", "raptor-mini"},
	{"copilot-gemini-2.5-pro", "gemini-2.5-pro"},
	{"copilot-gemini-3-pro", "gemini-3-pro-preview"},
	{"copilot-claude-haiku-4.5", "claude-haiku-4.5"},
	{"copilot-claude-opus-4.1", "claude-opus-4.1"},
	{"copilot-claude-sonnet-4", "claude-sonnet-4"},
	{"copilot-claude-sonnet-4.5", "claude-sonnet-4.5"},
	{"copilot-claude-opus-4.5", "claude-opus-4.5"},
}

type templateData struct {
	Port                    int
	Debug                   bool
	UsageStatsEnabled       bool
	LoggingToFile           bool
	RequestRetry            int
	ProxyURL                string
	QuotaSwitchProject      bool
	QuotaSwitchPreviewModel bool
	OpenAICompat            string
	ClaudeKeys              string
	GeminiKeys              string
	CodexKeys               string
	Payload                 string
	AmpAPIKeyLine           string
	AmpModelMappings        string
}

// Render produces the proxy configuration for the given settings.
func Render(c *config.Config) ([]byte, error) {
	tmpl, err := template.New("proxy-config").Parse(configTemplate)
	if err != nil {
		return nil, fmt.Errorf("could not parse config template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newTemplateData(c)); err != nil {
		return nil, fmt.Errorf("could not render proxy config: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders the proxy configuration and writes it atomically to the
// generated config path, returning that path.
func Write(c *config.Config) (string, error) {
	data, err := Render(c)
	if err != nil {
		return "", err
	}
	path := c.GeneratedYAMLPath()
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("could not write proxy config: %w", err)
	}
	return path, nil
}

func newTemplateData(c *config.Config) templateData {
	return templateData{
		Port:                    c.Port,
		Debug:                   c.Debug,
		UsageStatsEnabled:       c.UsageStatsEnabled,
		LoggingToFile:           c.LoggingToFile,
		RequestRetry:            c.RequestRetry,
		ProxyURL:                c.ProxyURL,
		QuotaSwitchProject:      c.QuotaSwitchProject,
		QuotaSwitchPreviewModel: c.QuotaSwitchPreviewModel,
		OpenAICompat:            openAICompatSection(c),
		ClaudeKeys:              apiKeySection("Claude API keys", "claude-api-key", c.ClaudeAPIKeys),
		GeminiKeys:              apiKeySection("Gemini API keys", "gemini-api-key", c.GeminiAPIKeys),
		CodexKeys:               apiKeySection("Codex API keys", "codex-api-key", c.CodexAPIKeys),
		Payload:                 payloadSection(c),
		AmpAPIKeyLine:           ampAPIKeyLine(c),
		AmpModelMappings:        ampMappingsSection(c),
	}
}

func quote(s string) string {
	return strconv.Quote(s)
}

// openAICompatSection lists custom OpenAI-compatible providers plus, when
// enabled, the copilot-api entry. Providers missing a name, base URL, or API
// key are skipped.
func openAICompatSection(c *config.Config) string {
	var entries []string
	for _, p := range c.AmpOpenAIProviders {
		if !p.Valid() {
			continue
		}
		var e strings.Builder
		fmt.Fprintf(&e, "  # Custom OpenAI-compatible provider: %s\n", p.Name)
		fmt.Fprintf(&e, "  - name: %s\n", quote(p.Name))
		fmt.Fprintf(&e, "    base-url: %s\n", quote(p.BaseURL))
		e.WriteString("    api-key-entries:\n")
		fmt.Fprintf(&e, "      - api-key: %s\n", quote(p.APIKey))
		if len(p.Models) > 0 {
			e.WriteString("    models:\n")
			for _, m := range p.Models {
				fmt.Fprintf(&e, "      - alias: %s\n", quote(m.Alias))
				fmt.Fprintf(&e, "        name: %s\n", quote(m.Name))
			}
		}
		entries = append(entries, e.String())
	}

	if c.Copilot.Enabled {
		entries = append(entries, copilotEntry(c.Copilot.Port))
	}

	if len(entries) == 0 {
		return ""
	}
	return "# OpenAI-compatible providers\nopenai-compatibility:\n" + strings.Join(entries, "") + "\n"
}

func copilotEntry(port int) string {
	var e strings.Builder
	e.WriteString("  # GitHub Copilot GPT/OpenAI models (via copilot-api)\n")
	e.WriteString("  - name: \"copilot\"\n")
	fmt.Fprintf(&e, "    base-url: \"http://localhost:%d/v1\"\n", port)
	e.WriteString("    api-key-entries:\n")
	e.WriteString("      - api-key: \"dummy\"\n")
	e.WriteString("    models:\n")
	for _, m := range copilotModels {
		fmt.Fprintf(&e, "      - alias: %s\n", quote(m[0]))
		fmt.Fprintf(&e, "        name: %s\n", quote(m[1]))
	}
	return e.String()
}

func apiKeySection(comment, key string, entries []config.APIKeyEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n%s:\n", comment, key)
	for _, e := range entries {
		fmt.Fprintf(&b, "  - api-key: %s\n", quote(e.APIKey))
		if e.BaseURL != "" {
			fmt.Fprintf(&b, "    base-url: %s\n", quote(e.BaseURL))
		}
		if e.ProxyURL != "" {
			fmt.Fprintf(&b, "    proxy-url: %s\n", quote(e.ProxyURL))
		}
	}
	b.WriteByte('\n')
	return b.String()
}

// payloadSection injects thinking budgets for the Antigravity claude models.
// CLIProxyAPI v6.6.0 normalizes -thinking suffixes dynamically, so the budget
// has to arrive through payload params.
func payloadSection(c *config.Config) string {
	budget := c.ThinkingBudgetTokens()
	return fmt.Sprintf(payloadTemplate, c.ThinkingBudgetModeDisplay(), budget, budget, budget)
}

func ampAPIKeyLine(c *config.Config) string {
	if c.AmpAPIKey == "" {
		return `  # upstream-api-key: ""  # Set your Amp API key from https://ampcode.com/settings`
	}
	return fmt.Sprintf("  upstream-api-key: %s", quote(c.AmpAPIKey))
}

func ampMappingsSection(c *config.Config) string {
	enabled := c.EnabledMappings()
	if len(enabled) == 0 {
		return "  # model-mappings:  # Optional: map Amp model requests to different models\n" +
			"  #   - from: claude-opus-4-5-20251101\n" +
			"  #     to: your-preferred-model"
	}
	var b strings.Builder
	b.WriteString("  model-mappings:")
	for _, m := range enabled {
		fmt.Fprintf(&b, "\n    - from: %s\n      to: %s", m.From, m.To)
	}
	return b.String()
}
