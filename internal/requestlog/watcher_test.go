package requestlog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/proxypal/proxypal/internal/proto"
)

type captureRecorder struct {
	mu   sync.Mutex
	recs []proto.RequestRecord
}

func (c *captureRecorder) Record(r proto.RequestRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, r)
	return nil
}

func (c *captureRecorder) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.recs)
}

func appendLine(tb testing.TB, path, line string) {
	tb.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(tb, err)
	_, err = f.WriteString(line)
	require.NoError(tb, err)
	require.NoError(tb, f.Close())
}

func awaitEvent(tb testing.TB, ch <-chan proto.RequestRecord) proto.RequestRecord {
	tb.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		tb.Fatal("timed out waiting for a request event")
		return proto.RequestRecord{}
	}
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.log")
	appendLine(t, path, `[GIN] 2025/12/04 - 20:00:00 | 200 |  1s | ::1 | POST "/v1/messages" | model=old-line`+"\n")

	rec := &captureRecorder{}
	w := NewWatcher(path, rec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()
	// let the watcher seek to the end before appending
	time.Sleep(250 * time.Millisecond)

	appendLine(t, path, `[GIN] 2025/12/04 - 20:51:48 | 200 |  6.656s | ::1 | POST "/v1/messages" | model=claude-sonnet-4-5`+"\n")
	got := awaitEvent(t, w.Events())
	require.Equal(t, "claude-sonnet-4-5", got.Model)
	require.Equal(t, 200, got.Status)

	// a line arriving in two chunks is parsed once complete
	appendLine(t, path, `[GIN] 2025/12/04 - 20:52:00 | 429 |  65ms | ::1 | POST `)
	appendLine(t, path, `"/v1/chat/completions" | model=gpt-4o`+"\n")
	got = awaitEvent(t, w.Events())
	require.Equal(t, "gpt-4o", got.Model)
	require.Equal(t, 429, got.Status)

	// rotation: file shrinks, watcher rereads from the top
	require.NoError(t, os.Truncate(path, 0))
	appendLine(t, path, `[GIN] 2025/12/04 - 20:53:00 | 200 |  2s | ::1 | POST "/v1/messages" | model=after-rotate`+"\n")
	got = awaitEvent(t, w.Events())
	require.Equal(t, "after-rotate", got.Model)

	require.Equal(t, 3, rec.len())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchCanceledWhileWaiting(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "main.log"), nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Watch(ctx))
}
