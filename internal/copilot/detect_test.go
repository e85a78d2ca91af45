package copilot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	for _, tc := range []struct {
		a, b string
		want int
	}{
		{"v22.1.0", "v9.11.2", 1},
		{"v9.11.2", "v22.1.0", -1},
		{"v20.0.0", "v20.0.0", 0},
		{"v20.1", "v20.1.5", -1},
		{"v20", "v20.0.0", 0},
	} {
		t.Run(tc.a+" vs "+tc.b, func(t *testing.T) {
			require.Equal(t, tc.want, compareVersions(tc.a, tc.b))
		})
	}
}

func TestNewestVersionDir(t *testing.T) {
	root := t.TempDir()
	for _, v := range []string{"v9.11.2", "v22.1.0", "v10.0.0"} {
		dir := filepath.Join(root, v, "bin")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "node"), []byte("#!/bin/sh\n"), 0o755))
	}
	// junk that must be skipped
	require.NoError(t, os.MkdirAll(filepath.Join(root, "current"), 0o755))

	got := newestVersionDir(root, filepath.Join("bin", "node"))
	require.Equal(t, filepath.Join(root, "v22.1.0", "bin", "node"), got)
}

func TestNewestVersionDirMissingRoot(t *testing.T) {
	require.Empty(t, newestVersionDir(filepath.Join(t.TempDir(), "nope"), "node"))
}

func TestNodeCandidates(t *testing.T) {
	t.Run("unix", func(t *testing.T) {
		got := nodeCandidates("/home/pal", "linux")
		require.Contains(t, got, "/home/pal/.volta/bin/node")
		require.Contains(t, got, "/home/pal/.asdf/shims/node")
		require.Contains(t, got, "/usr/local/bin/node")
		require.Contains(t, got, "/usr/bin/node")
		// version managers are preferred over the system node
		require.Less(t,
			indexOf(got, "/home/pal/.volta/bin/node"),
			indexOf(got, "/usr/bin/node"))
	})
	t.Run("windows", func(t *testing.T) {
		got := nodeCandidates(`C:\Users\pal`, "windows")
		require.Contains(t, got, `C:\Program Files\nodejs\node.exe`)
	})
}

func indexOf(xs []string, want string) int {
	for i, x := range xs {
		if x == want {
			return i
		}
	}
	return -1
}

func TestDetectionCommand(t *testing.T) {
	t.Run("installed binary wins", func(t *testing.T) {
		d := Detection{Installed: true, CopilotBin: "/usr/local/bin/copilot-api", NPXBin: "/usr/local/bin/npx"}
		bin, args := d.command()
		require.Equal(t, "/usr/local/bin/copilot-api", bin)
		require.Empty(t, args)
	})
	t.Run("falls back to npx", func(t *testing.T) {
		d := Detection{NPXBin: "/usr/local/bin/npx"}
		bin, args := d.command()
		require.Equal(t, "/usr/local/bin/npx", bin)
		require.Equal(t, []string{"--yes", "copilot-api@latest"}, args)
	})
	t.Run("nothing available", func(t *testing.T) {
		bin, _ := Detection{}.command()
		require.Empty(t, bin)
	})
}
