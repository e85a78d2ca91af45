package proxyconfig

const configTemplate = `# ProxyPal generated config
port: {{ .Port }}
auth-dir: "~/.cli-proxy-api"
api-keys:
  - "proxypal-local"
debug: {{ .Debug }}
usage-statistics-enabled: {{ .UsageStatsEnabled }}
logging-to-file: {{ .LoggingToFile }}
request-retry: {{ .RequestRetry }}
{{ if .ProxyURL }}proxy-url: "{{ .ProxyURL }}"
{{ end }}
# Quota exceeded behavior
quota-exceeded:
  switch-project: {{ .QuotaSwitchProject }}
  switch-preview-model: {{ .QuotaSwitchPreviewModel }}

# Enable Management API for OAuth flows
remote-management:
  allow-remote: false
  secret-key: "proxypal-mgmt-key"
  disable-control-panel: true

{{ .OpenAICompat }}{{ .ClaudeKeys }}{{ .GeminiKeys }}{{ .CodexKeys }}{{ .Payload }}# Amp CLI Integration - enables amp login and management routes
# See: https://help.router-for.me/agent-client/amp-cli.html
# Get API key from: https://ampcode.com/settings
ampcode:
  upstream-url: "https://ampcode.com"
{{ .AmpAPIKeyLine }}
{{ .AmpModelMappings }}
  restrict-management-to-localhost: false
`

const payloadTemplate = `# Payload injection for thinking models (fixes CLIProxyAPI v6.6.0+ suffix normalization)
# Thinking budget mode: %s (%d tokens)
payload:
  default:
    - models:
        - name: "gemini-claude-sonnet-4-5"
          protocol: "claude"
        - name: "gemini-claude-sonnet-4-5-thinking"
          protocol: "claude"
      params:
        "thinking.budget_tokens": %d
    - models:
        - name: "gemini-claude-opus-4-5"
          protocol: "claude"
        - name: "gemini-claude-opus-4-5-thinking"
          protocol: "claude"
      params:
        "thinking.budget_tokens": %d

`
