package management

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proxypal/proxypal/internal/proto"
	"github.com/proxypal/proxypal/internal/proxyconfig"
)

func testClient(tb testing.TB, handler http.Handler) *Client {
	tb.Helper()
	srv := httptest.NewServer(handler)
	tb.Cleanup(srv.Close)
	return &Client{
		base: srv.URL + "/v0/management",
		key:  proxyconfig.ManagementKey,
		http: srv.Client(),
	}
}

func TestUnwrapList(t *testing.T) {
	for name, tt := range map[string]struct {
		data string
		want int
	}{
		"wrapped":        {`{"gemini-api-key": [{"api-key": "a"}, {"api-key": "b"}]}`, 2},
		"wrapped null":   {`{"gemini-api-key": null}`, 0},
		"missing key":    {`{}`, 0},
		"bare array":     {`[{"api-key": "a"}]`, 1},
		"top level null": {`null`, 0},
		"empty body":     {``, 0},
	} {
		t.Run(name, func(t *testing.T) {
			keys, err := unwrapList[APIKey]([]byte(tt.data), "gemini-api-key")
			require.NoError(t, err)
			require.Len(t, keys, tt.want)
		})
	}

	t.Run("wrong shape", func(t *testing.T) {
		_, err := unwrapList[APIKey]([]byte(`{"gemini-api-key": "nope"}`), "gemini-api-key")
		require.Error(t, err)
	})
}

func TestGeminiKeys(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, proxyconfig.ManagementKey, r.Header.Get("X-Management-Key"))
		require.Equal(t, "/v0/management/gemini-api-key", r.URL.Path)
		_, _ = fmt.Fprint(w, `{"gemini-api-key": [{"api-key": "AIza", "base-url": "https://u", "excluded-models": ["m1"]}]}`)
	}))

	keys, err := c.GeminiKeys(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Equal(t, "AIza", keys[0].Key)
	require.Equal(t, "https://u", keys[0].BaseURL)
	require.Equal(t, []string{"m1"}, keys[0].ExcludedModels)

	entry := keys[0].ToConfig()
	require.Equal(t, "AIza", entry.APIKey)
	require.Equal(t, []string{"m1"}, entry.ExcludedModels)
}

func TestGeminiKeysErrorStatus(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	keys, err := c.GeminiKeys(context.Background())
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestSetClaudeKeys(t *testing.T) {
	var got []map[string]any
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/v0/management/claude-api-key", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))

	err := c.SetClaudeKeys(context.Background(), []APIKey{
		{Key: "sk-ant", BaseURL: "https://api.anthropic.com"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "sk-ant", got[0]["api-key"])
	require.Equal(t, "https://api.anthropic.com", got[0]["base-url"])
	require.NotContains(t, got[0], "apiKey")
}

func TestSetKeysError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = fmt.Fprint(w, "bad key")
	}))
	err := c.SetCodexKeys(context.Background(), nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	require.Equal(t, "bad key", apiErr.Body)
}

func TestAuthFiles(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v0/management/auth-files", r.URL.Path)
		_, _ = fmt.Fprint(w, `{"files": [{"id": "claude-a.json", "name": "claude-a.json", "provider": "claude", "status": "active", "runtime_only": true}]}`)
	}))
	files, err := c.AuthFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "claude", files[0].Provider)
	require.True(t, files[0].RuntimeOnly)
}

func TestSetAuthFileDisabled(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/v0/management/auth-files/claude-a.json/disabled", r.URL.Path)
		var body map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.True(t, body["value"])
	}))
	require.NoError(t, c.SetAuthFileDisabled(context.Background(), "claude-a.json", true))
}

func TestForceModelMappings(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v0/management/ampcode/force-model-mappings", r.URL.Path)
		_, _ = fmt.Fprint(w, `{"force-model-mappings": true}`)
	}))
	on, err := c.ForceModelMappings(context.Background())
	require.NoError(t, err)
	require.True(t, on)
}

func TestUsageModelTotals(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v0/management/usage", r.URL.Path)
		_, _ = fmt.Fprint(w, `{"usage": {"total_tokens": 70, "apis": {
			"POST /v1/messages": {"total_tokens": 70, "models": {
				"claude-sonnet-4-5": {"details": [
					{"tokens": {"input_tokens": 10, "output_tokens": 20}},
					{"tokens": {"input_tokens": 15, "output_tokens": 25}}
				]}
			}}
		}}}`)
	}))

	usage, err := c.Usage(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 70, usage.TotalTokens)

	totals := usage.ModelTotals()
	require.Len(t, totals, 1)
	require.EqualValues(t, 2, totals["claude-sonnet-4-5"].Requests)
	require.EqualValues(t, 25, totals["claude-sonnet-4-5"].TokensIn)
	require.EqualValues(t, 45, totals["claude-sonnet-4-5"].TokensOut)
}

func TestAuthURL(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v0/management/anthropic-auth-url", r.URL.Path)
		require.Equal(t, "true", r.URL.Query().Get("is_webui"))
		_, _ = fmt.Fprint(w, `{"url": "https://claude.ai/oauth?x=1", "state": "abc123"}`)
	}))

	authURL, state, err := c.AuthURL(context.Background(), proto.ProviderClaude)
	require.NoError(t, err)
	require.Equal(t, "https://claude.ai/oauth?x=1", authURL)
	require.Equal(t, "abc123", state)
}

func TestAuthURLVertex(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	_, _, err := c.AuthURL(context.Background(), proto.ProviderVertex)
	require.ErrorContains(t, err, "service account import")
}

func TestAuthCompleted(t *testing.T) {
	status := http.StatusNotFound
	body := ""
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "abc123", r.URL.Query().Get("state"))
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))

	done, err := c.AuthCompleted(context.Background(), "abc123")
	require.NoError(t, err)
	require.False(t, done)

	status, body = http.StatusOK, `{"status": "wait"}`
	done, err = c.AuthCompleted(context.Background(), "abc123")
	require.NoError(t, err)
	require.False(t, done)

	body = `{"status": "ok"}`
	done, err = c.AuthCompleted(context.Background(), "abc123")
	require.NoError(t, err)
	require.True(t, done)
}

func TestParseLogLine(t *testing.T) {
	for name, tt := range map[string]struct {
		line string
		want LogEntry
	}{
		"bracketed with source": {
			"[2025-12-02 22:12:52] [info] [gin_logger.go:58] 200 | POST /v1/messages",
			LogEntry{Timestamp: "2025-12-02 22:12:52", Level: "INFO", Message: "200 | POST /v1/messages"},
		},
		"bracketed": {
			"[2025-12-02 22:12:52] [warning] upstream slow",
			LogEntry{Timestamp: "2025-12-02 22:12:52", Level: "WARN", Message: "upstream slow"},
		},
		"iso prefixed": {
			"2024-01-15T10:30:45.123Z [INFO] listening on :8317",
			LogEntry{Timestamp: "2024-01-15T10:30:45.123Z", Level: "INFO", Message: "listening on :8317"},
		},
		"level prefixed": {
			"ERROR: connection refused",
			LogEntry{Level: "ERROR", Message: "connection refused"},
		},
		"plain": {
			"something happened",
			LogEntry{Level: "INFO", Message: "something happened"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.want, ParseLogLine(tt.line))
		})
	}
}
