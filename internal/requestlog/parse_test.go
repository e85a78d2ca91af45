package requestlog

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/proxypal/proxypal/internal/proto"
)

func TestParseLine(t *testing.T) {
	tests := map[string]struct {
		line     string
		ok       bool
		model    string
		provider proto.Provider
		status   int
		duration time.Duration
	}{
		"claude with model column": {
			line:     `[GIN] 2025/12/04 - 20:51:48 | 200 |  6.656s |             ::1 | POST     "/api/provider/anthropic/v1/messages" | model=claude-sonnet-4-5`,
			ok:       true,
			model:    "claude-sonnet-4-5",
			provider: proto.ProviderClaude,
			status:   200,
			duration: 6656 * time.Millisecond,
		},
		"gemini model from path": {
			line:     `[GIN] 2025/12/04 - 20:52:10 | 200 |  1.2s |             ::1 | POST     "/v1beta/models/gemini-2.5-pro:streamGenerateContent"`,
			ok:       true,
			model:    "gemini-2.5-pro",
			provider: proto.ProviderGemini,
			status:   200,
			duration: 1200 * time.Millisecond,
		},
		"chat completions failure": {
			line:     `[GIN] 2025/12/04 - 20:53:00 | 429 |  65ms |             ::1 | POST     "/v1/chat/completions" | model=gpt-4o`,
			ok:       true,
			model:    "gpt-4o",
			provider: proto.ProviderOpenAI,
			status:   429,
			duration: 65 * time.Millisecond,
		},
		"no model anywhere": {
			line:  `[GIN] 2025/12/04 - 20:54:00 | 200 |  10ms |             ::1 | POST     "/v1/chat/completions"`,
			ok:    true,
			model: "unknown",
			// provider falls back to the endpoint shape
			provider: proto.ProviderOpenAI,
			status:   200,
			duration: 10 * time.Millisecond,
		},
		"management route": {
			line: `[GIN] 2025/12/04 - 20:51:50 | 200 |  3ms |             ::1 | GET      "/v0/management/usage"`,
		},
		"model listing": {
			line: `[GIN] 2025/12/04 - 20:51:51 | 200 |  2ms |             ::1 | GET      "/v1/models"`,
		},
		"amp bookkeeping": {
			line: `[GIN] 2025/12/04 - 20:51:52 | 200 |  2ms |             ::1 | POST     "/api/threads?uploadThread"`,
		},
		"untrackable route": {
			line: `[GIN] 2025/12/04 - 20:51:53 | 200 |  1ms |             ::1 | GET      "/healthz"`,
		},
		"not a gin line": {
			line: `[2025-12-04 20:51:48] [info] [gin_logger.go:58] server listening`,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var counter atomic.Uint64
			got, ok := ParseLine(tc.line, &counter)
			require.Equal(t, tc.ok, ok)
			if !tc.ok {
				return
			}
			require.Equal(t, tc.model, got.Model)
			require.Equal(t, tc.provider, got.Provider)
			require.Equal(t, tc.status, got.Status)
			require.Equal(t, tc.duration, got.Duration)
			require.Regexp(t, `^req_\d+_1$`, got.ID)
		})
	}
}

func TestParseLineTimestamp(t *testing.T) {
	var counter atomic.Uint64
	line := `[GIN] 2025/12/04 - 20:51:48 | 200 |  6.656s |             ::1 | POST     "/v1/messages" | model=claude-sonnet-4-5`
	got, ok := ParseLine(line, &counter)
	require.True(t, ok)
	want := time.Date(2025, 12, 4, 20, 51, 48, 0, time.Local)
	require.Equal(t, want, got.Timestamp)
}

func TestParseLineUniqueIDs(t *testing.T) {
	var counter atomic.Uint64
	line := `[GIN] 2025/12/04 - 20:51:48 | 200 |  1s |             ::1 | POST     "/v1/messages" | model=claude-sonnet-4-5`
	first, ok := ParseLine(line, &counter)
	require.True(t, ok)
	second, ok := ParseLine(line, &counter)
	require.True(t, ok)
	require.NotEqual(t, first.ID, second.ID)
}
