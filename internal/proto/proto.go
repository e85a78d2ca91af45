// Package proto shared request-tracking types.
package proto

import (
	"strings"
	"time"
)

// Provider identifies the upstream family a request was routed to.
type Provider string

// Providers.
const (
	ProviderClaude      Provider = "claude"
	ProviderOpenAI      Provider = "openai"
	ProviderGemini      Provider = "gemini"
	ProviderCodex       Provider = "codex"
	ProviderQwen        Provider = "qwen"
	ProviderIFlow       Provider = "iflow"
	ProviderVertex      Provider = "vertex"
	ProviderAntigravity Provider = "antigravity"
	ProviderCopilot     Provider = "copilot"
	ProviderDeepSeek    Provider = "deepseek"
	ProviderZhipu       Provider = "zhipu"
	ProviderUnknown     Provider = "unknown"
)

// OAuthProviders are the providers that support the browser OAuth flow
// exposed by the proxy's management API.
var OAuthProviders = []Provider{
	ProviderClaude,
	ProviderCodex,
	ProviderGemini,
	ProviderQwen,
	ProviderIFlow,
	ProviderAntigravity,
}

// ModelInfo is one entry from the proxy's /v1/models listing.
type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by"`
}

// RequestRecord is one completed request observed in the proxy's log.
type RequestRecord struct {
	ID        string
	Timestamp time.Time
	Method    string
	Path      string
	Model     string
	Provider  Provider
	Status    int
	Duration  time.Duration
	TokensIn  int64
	TokensOut int64
	Cost      float64
}

// Success reports whether the request completed without an error status.
func (r RequestRecord) Success() bool {
	return r.Status < 400
}

// DetectProvider resolves the provider for a request, preferring the route
// over the model name: explicit /api/provider/ prefixes win, then the
// protocol-specific endpoint shapes, then the model name itself.
func DetectProvider(path, model string) Provider {
	p := strings.ToLower(path)

	if prefixed := providerFromRoute(p); prefixed != ProviderUnknown {
		return prefixed
	}

	switch {
	case strings.Contains(p, "/v1/messages"):
		return ProviderClaude
	case strings.Contains(p, "chat/completions"), strings.Contains(p, "/v1/completions"):
		return ProviderOpenAI
	case strings.Contains(p, "/v1beta"),
		strings.Contains(p, ":generatecontent"),
		strings.Contains(p, ":streamgeneratecontent"):
		return ProviderGemini
	}

	return providerFromModel(model)
}

func providerFromRoute(path string) Provider {
	const marker = "/api/provider/"
	i := strings.Index(path, marker)
	if i < 0 {
		return ProviderUnknown
	}
	rest := path[i+len(marker):]
	name, _, _ := strings.Cut(rest, "/")
	switch name {
	case "anthropic", "claude":
		return ProviderClaude
	case "google", "gemini":
		return ProviderGemini
	case "openai":
		return ProviderOpenAI
	case "codex":
		return ProviderCodex
	case "qwen":
		return ProviderQwen
	case "iflow":
		return ProviderIFlow
	case "vertex":
		return ProviderVertex
	case "antigravity":
		return ProviderAntigravity
	case "copilot":
		return ProviderCopilot
	default:
		return ProviderUnknown
	}
}

func providerFromModel(model string) Provider {
	m := strings.ToLower(model)
	switch {
	case m == "":
		return ProviderUnknown
	case strings.Contains(m, "claude"),
		strings.Contains(m, "sonnet"),
		strings.Contains(m, "opus"),
		strings.Contains(m, "haiku"):
		return ProviderClaude
	case strings.Contains(m, "gpt"),
		strings.Contains(m, "codex"),
		strings.HasPrefix(m, "o1"),
		strings.HasPrefix(m, "o3"),
		strings.HasPrefix(m, "o4"):
		return ProviderOpenAI
	case strings.Contains(m, "gemini"):
		return ProviderGemini
	case strings.Contains(m, "qwen"):
		return ProviderQwen
	case strings.Contains(m, "deepseek"):
		return ProviderDeepSeek
	case strings.Contains(m, "glm"):
		return ProviderZhipu
	case strings.Contains(m, "antigravity"):
		return ProviderAntigravity
	default:
		return ProviderUnknown
	}
}

// ExtractModel pulls the model name out of a Gemini-style request path,
// e.g. /v1beta/models/gemini-2.5-pro:streamGenerateContent.
func ExtractModel(path string) string {
	const marker = "/models/"
	i := strings.Index(path, marker)
	if i < 0 {
		return ""
	}
	rest := path[i+len(marker):]
	if j := strings.IndexAny(rest, ":/?"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
