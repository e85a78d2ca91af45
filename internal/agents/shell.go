package agents

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/renameio/v2"
)

// profileMarker guards against writing the same block twice. Every generated
// export block starts with a "# ProxyPal" header.
const profileMarker = "# ProxyPal"

// ProfilePath picks the shell profile environment exports go into, based on
// $SHELL.
func (c *Configurer) ProfilePath() string {
	return profilePath(c.home, os.Getenv("SHELL"), runtime.GOOS)
}

func profilePath(home, shell, goos string) string {
	switch {
	case strings.Contains(shell, "zsh"):
		return filepath.Join(home, ".zshrc")
	case strings.Contains(shell, "bash"):
		if goos == "darwin" {
			return filepath.Join(home, ".bash_profile")
		}
		return filepath.Join(home, ".bashrc")
	case strings.Contains(shell, "fish"):
		return filepath.Join(home, ".config", "fish", "config.fish")
	default:
		return filepath.Join(home, ".profile")
	}
}

// AppendProfile appends an export block to the user's shell profile and
// returns the profile path. It refuses when a ProxyPal block is already
// there: stacking a second one would shadow the first and make removal a
// guessing game.
func (c *Configurer) AppendProfile(content string) (string, error) {
	path := c.ProfilePath()
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("could not read shell profile: %w", err)
	}
	if strings.Contains(string(existing), profileMarker) {
		return "", fmt.Errorf("a ProxyPal block already exists in %s, remove it first or update it manually", path)
	}
	updated := strings.TrimRight(string(existing), " \t\r\n") + "\n\n" + content
	if err := renameio.WriteFile(path, []byte(updated), 0o644); err != nil {
		return "", fmt.Errorf("could not write shell profile: %w", err)
	}
	return path, nil
}
