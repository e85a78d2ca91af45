package authfiles

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proxypal/proxypal/internal/proto"
)

func testStore(tb testing.TB) *Store {
	tb.Helper()
	dir := tb.TempDir()
	return New(filepath.Join(dir, ".cli-proxy-api"), filepath.Join(dir, "proxypal", "auth.json"))
}

func seed(tb testing.TB, s *Store, names ...string) {
	tb.Helper()
	require.NoError(tb, os.MkdirAll(s.authDir, 0o700))
	for _, n := range names {
		require.NoError(tb, os.WriteFile(filepath.Join(s.authDir, n), []byte("{}"), 0o600))
	}
}

func TestScan(t *testing.T) {
	s := testStore(t)
	seed(t, s,
		"claude-me@example.com.json",
		"anthropic-work.json",
		"codex-me@example.com.json",
		"gemini-me@example.com-proj.json",
		"vertex-my-project.json",
		"qwen-me.json",
		"notes.txt",
		"iflow-me.backup",
	)

	st, err := s.Scan()
	require.NoError(t, err)
	require.Equal(t, Status{Claude: 2, OpenAI: 1, Gemini: 1, Qwen: 1, Vertex: 1}, st)
	require.Equal(t, 6, st.Total())
}

func TestScanMissingDir(t *testing.T) {
	s := testStore(t)
	st, err := s.Scan()
	require.NoError(t, err)
	require.Equal(t, Status{}, st)
}

func TestCached(t *testing.T) {
	s := testStore(t)
	require.Equal(t, Status{}, s.Cached())

	seed(t, s, "claude-me.json")
	st, err := s.Scan()
	require.NoError(t, err)
	require.Equal(t, st, s.Cached())

	// cache survives as plain JSON
	data, err := os.ReadFile(s.cachePath)
	require.NoError(t, err)
	var onDisk Status
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Equal(t, st, onDisk)
}

func TestDisconnect(t *testing.T) {
	s := testStore(t)
	seed(t, s, "claude-one.json", "anthropic-two.json", "gemini-keep.json")

	st, err := s.Disconnect(proto.ProviderClaude)
	require.NoError(t, err)
	require.Equal(t, Status{Gemini: 1}, st)

	entries, err := os.ReadDir(s.authDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "gemini-keep.json", entries[0].Name())
}

func TestDisconnectUnknownProvider(t *testing.T) {
	s := testStore(t)
	_, err := s.Disconnect(proto.Provider("nope"))
	require.ErrorContains(t, err, "unknown provider")
}

func TestImportVertex(t *testing.T) {
	s := testStore(t)
	src := filepath.Join(t.TempDir(), "sa.json")
	sa := `{"type":"service_account","project_id":"my-project","private_key":"..."}`
	require.NoError(t, os.WriteFile(src, []byte(sa), 0o600))

	st, err := s.ImportVertex(src)
	require.NoError(t, err)
	require.Equal(t, 1, st.Vertex)

	installed, err := os.ReadFile(filepath.Join(s.authDir, "vertex-my-project.json"))
	require.NoError(t, err)
	require.Equal(t, sa, string(installed))
}

func TestImportVertexRejects(t *testing.T) {
	s := testStore(t)
	cases := map[string]struct {
		content string
		wantErr string
	}{
		"wrong type":         {`{"type":"authorized_user","project_id":"p"}`, "service_account"},
		"missing project id": {`{"type":"service_account"}`, "project_id"},
		"not json":           {`not json at all`, "could not parse"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			src := filepath.Join(t.TempDir(), "sa.json")
			require.NoError(t, os.WriteFile(src, []byte(tc.content), 0o600))
			_, err := s.ImportVertex(src)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}
