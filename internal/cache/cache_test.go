package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/proxypal/proxypal/internal/proto"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	t.Run("read missing", func(t *testing.T) {
		c, err := New[string](t.TempDir())
		require.NoError(t, err)
		var v string
		require.ErrorIs(t, c.Read("nope", &v), os.ErrNotExist)
	})

	t.Run("round trip", func(t *testing.T) {
		c, err := New[string](t.TempDir())
		require.NoError(t, err)
		v := "hello"
		require.NoError(t, c.Write("greeting", time.Hour, &v))

		var got string
		require.NoError(t, c.Read("greeting", &got))
		require.Equal(t, "hello", got)
	})

	t.Run("overwrite replaces the old entry", func(t *testing.T) {
		dir := t.TempDir()
		c, err := New[string](dir)
		require.NoError(t, err)

		one, two := "one", "two"
		require.NoError(t, c.Write("k", time.Hour, &one))
		require.NoError(t, c.Write("k", 2*time.Hour, &two))

		var got string
		require.NoError(t, c.Read("k", &got))
		require.Equal(t, "two", got)

		files, err := filepath.Glob(filepath.Join(dir, "k.*"))
		require.NoError(t, err)
		require.Len(t, files, 1)
	})

	t.Run("expired entries are removed on read", func(t *testing.T) {
		dir := t.TempDir()
		c, err := New[string](dir)
		require.NoError(t, err)
		v := "stale"
		require.NoError(t, c.Write("k", -time.Hour, &v))

		var got string
		require.ErrorIs(t, c.Read("k", &got), os.ErrNotExist)

		files, err := filepath.Glob(filepath.Join(dir, "k.*"))
		require.NoError(t, err)
		require.Empty(t, files)
	})

	t.Run("delete", func(t *testing.T) {
		c, err := New[string](t.TempDir())
		require.NoError(t, err)
		v := "gone soon"
		require.NoError(t, c.Write("k", time.Hour, &v))
		require.NoError(t, c.Delete("k"))
		require.ErrorIs(t, c.Read("k", &v), os.ErrNotExist)
	})

	t.Run("invalid id", func(t *testing.T) {
		c, err := New[string](t.TempDir())
		require.NoError(t, err)
		var v string
		require.ErrorIs(t, c.Write("", time.Hour, &v), errInvalidID)
		require.ErrorIs(t, c.Read("", &v), errInvalidID)
		require.ErrorIs(t, c.Delete(""), errInvalidID)
	})
}

func TestModels(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		mc, err := NewModels(t.TempDir())
		require.NoError(t, err)
		models := []proto.ModelInfo{
			{ID: "claude-sonnet-4-5", OwnedBy: "anthropic"},
			{ID: "gemini-2.5-pro", OwnedBy: "google"},
		}
		require.NoError(t, mc.Write(&models, time.Hour))

		var got []proto.ModelInfo
		require.NoError(t, mc.Read(&got))
		require.ElementsMatch(t, models, got)
	})

	t.Run("expired", func(t *testing.T) {
		mc, err := NewModels(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, mc.Write(&[]proto.ModelInfo{{ID: "gpt-5"}}, -time.Hour))
		require.ErrorIs(t, mc.Read(&[]proto.ModelInfo{}), os.ErrNotExist)
	})

	t.Run("delete", func(t *testing.T) {
		mc, err := NewModels(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, mc.Write(&[]proto.ModelInfo{}, time.Hour))
		require.NoError(t, mc.Delete())
		require.ErrorIs(t, mc.Read(&[]proto.ModelInfo{}), os.ErrNotExist)
	})
}
