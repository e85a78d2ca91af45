package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectProvider(t *testing.T) {
	for name, tt := range map[string]struct {
		path  string
		model string
		want  Provider
	}{
		"explicit anthropic route": {
			path: "/api/provider/anthropic/v1/messages",
			want: ProviderClaude,
		},
		"explicit google route": {
			path: "/api/provider/google/v1beta/models/gemini-2.5-pro:generateContent",
			want: ProviderGemini,
		},
		"explicit copilot route": {
			path: "/api/provider/copilot/v1/chat/completions",
			want: ProviderCopilot,
		},
		"claude messages": {
			path: "/v1/messages",
			want: ProviderClaude,
		},
		"openai chat": {
			path: "/v1/chat/completions",
			want: ProviderOpenAI,
		},
		"legacy completions": {
			path: "/v1/completions",
			want: ProviderOpenAI,
		},
		"gemini beta": {
			path: "/v1beta/models/gemini-2.5-flash:streamGenerateContent",
			want: ProviderGemini,
		},
		"model claude": {
			path:  "/weird/endpoint",
			model: "claude-sonnet-4-5",
			want:  ProviderClaude,
		},
		"model sonnet alias": {
			path:  "/weird/endpoint",
			model: "gemini-claude-sonnet-4-5",
			want:  ProviderClaude,
		},
		"model gpt": {
			path:  "/weird/endpoint",
			model: "gpt-5",
			want:  ProviderOpenAI,
		},
		"model o4": {
			path:  "/weird/endpoint",
			model: "o4-mini",
			want:  ProviderOpenAI,
		},
		"model qwen": {
			path:  "/weird/endpoint",
			model: "qwen3-coder-plus",
			want:  ProviderQwen,
		},
		"model deepseek": {
			path:  "/weird/endpoint",
			model: "deepseek-reasoner",
			want:  ProviderDeepSeek,
		},
		"model glm": {
			path:  "/weird/endpoint",
			model: "glm-4.6",
			want:  ProviderZhipu,
		},
		"nothing to go on": {
			path: "/weird/endpoint",
			want: ProviderUnknown,
		},
	} {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.want, DetectProvider(tt.path, tt.model))
		})
	}
}

func TestExtractModel(t *testing.T) {
	for name, tt := range map[string]struct {
		path string
		want string
	}{
		"generate content": {
			path: "/v1beta/models/gemini-2.5-pro:generateContent",
			want: "gemini-2.5-pro",
		},
		"stream": {
			path: "/v1beta/models/gemini-2.5-flash:streamGenerateContent",
			want: "gemini-2.5-flash",
		},
		"trailing segment": {
			path: "/v1/models/gpt-4o/completions",
			want: "gpt-4o",
		},
		"no marker": {
			path: "/v1/chat/completions",
			want: "",
		},
	} {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractModel(tt.path))
		})
	}
}

func TestSuccess(t *testing.T) {
	require.True(t, RequestRecord{Status: 200}.Success())
	require.True(t, RequestRecord{Status: 399}.Success())
	require.False(t, RequestRecord{Status: 400}.Success())
	require.False(t, RequestRecord{Status: 500}.Success())
}
