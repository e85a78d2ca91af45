package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/proxypal/proxypal/internal/cache"
	"github.com/proxypal/proxypal/internal/config"
	"github.com/proxypal/proxypal/internal/gateway"
	"github.com/proxypal/proxypal/internal/proto"
)

var modelsRefresh bool

func init() {
	modelsCmd.Flags().BoolVar(&modelsRefresh, "refresh", false, "Drop the cached listing and ask the proxy again")
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models the proxy serves",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if modelsRefresh {
			if mc, err := cache.NewModels(config.CachePath()); err == nil {
				_ = mc.Delete()
			}
		}
		models := proxyModels(cmd.Context())
		if len(models) == 0 {
			return proxypalError{
				newUserErrorf("no model listing available"),
				"The proxy is not running and nothing is cached. Start it with proxypal serve.",
			}
		}
		slices.SortFunc(models, func(a, b proto.ModelInfo) int {
			return strings.Compare(a.ID, b.ID)
		})

		s := stdoutStyles()
		fmt.Printf("  %s %-44s %10s %10s\n",
			s.Flag.Render(fmt.Sprintf("%-28s", "Model")),
			s.Flag.Render("ID"),
			s.Flag.Render("Context"),
			s.Flag.Render("Output"))
		for _, m := range models {
			ctxTokens, outTokens := gateway.Limits(m.ID, m.OwnedBy)
			fmt.Printf("  %-28s %-44s %10s %10s\n",
				gateway.DisplayName(m.ID),
				m.ID,
				formatTokens(ctxTokens),
				formatTokens(outTokens))
		}
		return nil
	},
}

// formatTokens renders a token limit the way model cards spell them, e.g.
// 200k or 1M.
func formatTokens(n int64) string {
	switch {
	case n <= 0:
		return "-"
	case n >= 1_000_000 && n%1_000_000 == 0:
		return fmt.Sprintf("%dM", n/1_000_000)
	case n >= 1000:
		return fmt.Sprintf("%dk", n/1000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
