package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/proxypal/proxypal/internal/config"
	"github.com/proxypal/proxypal/internal/management"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage upstream API keys",
	Long: "Stores Claude, Gemini, and Codex API keys in the settings. Keys are\n" +
		"written into the generated proxy configuration on the next start, and\n" +
		"pushed straight to the proxy when it is already running.",
}

func init() {
	keysCmd.AddCommand(
		newKeysCommand("claude",
			func() *[]config.APIKeyEntry { return &cfg.ClaudeAPIKeys },
			func(ctx context.Context, m *management.Client, keys []management.APIKey) error {
				return m.SetClaudeKeys(ctx, keys)
			}),
		newKeysCommand("gemini",
			func() *[]config.APIKeyEntry { return &cfg.GeminiAPIKeys },
			func(ctx context.Context, m *management.Client, keys []management.APIKey) error {
				return m.SetGeminiKeys(ctx, keys)
			}),
		newKeysCommand("codex",
			func() *[]config.APIKeyEntry { return &cfg.CodexAPIKeys },
			func(ctx context.Context, m *management.Client, keys []management.APIKey) error {
				return m.SetCodexKeys(ctx, keys)
			}),
	)
}

// newKeysCommand builds the add/list/remove tree for one provider. entries
// must be resolved lazily, the global config is not loaded at init time.
func newKeysCommand(
	provider string,
	entries func() *[]config.APIKeyEntry,
	push func(context.Context, *management.Client, []management.APIKey) error,
) *cobra.Command {
	cmd := &cobra.Command{
		Use:   provider,
		Short: fmt.Sprintf("Manage %s API keys", provider),
	}

	var baseURL string
	add := &cobra.Command{
		Use:   "add [key]",
		Short: fmt.Sprintf("Store a %s API key", provider),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var key string
			if len(args) > 0 {
				key = args[0]
			} else {
				if !isInputTTY() {
					return newUserErrorf("pass the key as an argument or run interactively")
				}
				err := huh.NewInput().
					Title(fmt.Sprintf("%s API key", provider)).
					EchoMode(huh.EchoModePassword).
					Value(&key).
					Run()
				if err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return proxypalError{err, "Canceled."}
					}
					return proxypalError{err, "Could not read the key."}
				}
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return newUserErrorf("the key is empty")
			}
			list := entries()
			for _, e := range *list {
				if e.APIKey == key {
					return newUserErrorf("that key is already stored")
				}
			}
			*list = append(*list, config.APIKeyEntry{APIKey: key, BaseURL: baseURL})
			if err := cfg.Save(); err != nil {
				return proxypalError{err, "Could not save the settings file."}
			}
			fmt.Printf("Stored %s key %s.\n", provider, maskSecret(key))
			pushKeys(c.Context(), provider, *list, push)
			return nil
		},
	}
	add.Flags().StringVar(&baseURL, "base-url", "", "Custom upstream base URL for this key")

	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List stored %s keys", provider),
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			l := *entries()
			if len(l) == 0 {
				fmt.Printf("No %s keys stored.\n", provider)
				return nil
			}
			s := stdoutStyles()
			for i, e := range l {
				extra := ""
				if e.BaseURL != "" {
					extra = " " + s.Comment.Render(e.BaseURL)
				}
				fmt.Printf("  %d. %s%s\n", i+1, maskSecret(e.APIKey), extra)
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <number>",
		Short: fmt.Sprintf("Remove a stored %s key", provider),
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			l := entries()
			i, err := strconv.Atoi(args[0])
			if err != nil || i < 1 || i > len(*l) {
				return newUserErrorf("pick a key between 1 and %d, see %s", len(*l),
					fmt.Sprintf("proxypal keys %s list", provider))
			}
			*l = append((*l)[:i-1], (*l)[i:]...)
			if err := cfg.Save(); err != nil {
				return proxypalError{err, "Could not save the settings file."}
			}
			fmt.Println("Removed.")
			pushKeys(c.Context(), provider, *l, push)
			return nil
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}

// pushKeys best-effort syncs the stored keys to a running proxy. A proxy
// that is down picks them up from the generated config on its next start.
func pushKeys(
	ctx context.Context,
	provider string,
	entries []config.APIKeyEntry,
	push func(context.Context, *management.Client, []management.APIKey) error,
) {
	if !portOpen(cfg.Port) {
		return
	}
	wire := make([]management.APIKey, 0, len(entries))
	for _, e := range entries {
		wire = append(wire, management.KeyFromConfig(e))
	}
	if err := push(ctx, management.New(cfg.Port), wire); err != nil {
		s := stderrStyles()
		fmt.Fprintln(os.Stderr, s.Comment.Render(
			fmt.Sprintf("could not push %s keys to the running proxy: %v", provider, err)))
	}
}
