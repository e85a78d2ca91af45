package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/proxypal/proxypal/internal/config"
	"github.com/proxypal/proxypal/internal/history"
	"github.com/proxypal/proxypal/internal/management"
)

var (
	usageDoSync bool
	usageAsJSON bool
)

func init() {
	usageCmd.Flags().BoolVar(&usageDoSync, "sync", false, "Pull real token totals from the running proxy first")
	usageCmd.Flags().BoolVar(&usageAsJSON, "json", false, "Print statistics as JSON")
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Token and cost statistics",
	Long: "Aggregates the recorded request history into totals, per-model usage,\n" +
		"and estimated cost. The proxy's request log carries no token counts,\n" +
		"so pass --sync while the proxy runs to pull the real numbers from its\n" +
		"usage endpoint.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := history.Open(config.HistoryDBPath())
		if err != nil {
			return proxypalError{err, "Could not open the history database."}
		}
		defer func() { _ = db.Close() }()

		if usageDoSync {
			if err := syncUsage(cmd.Context(), management.New(cfg.Port), db); err != nil {
				return proxypalError{err, "Could not sync usage from the proxy. Is it running?"}
			}
		}

		stats, err := db.Stats(time.Now())
		if err != nil {
			return proxypalError{err, "Could not compute usage statistics."}
		}
		totals, err := db.Totals()
		if err != nil {
			totals = history.Totals{}
		}

		if usageAsJSON {
			out, err := json.MarshalIndent(struct {
				history.Stats
				Totals history.Totals `json:"totals"`
			}{stats, totals}, "", "  ")
			if err != nil {
				return proxypalError{err, "Could not encode usage statistics."}
			}
			fmt.Println(string(out))
			return nil
		}

		printUsage(stats, totals)
		return nil
	},
}

// syncUsage replaces the all-time totals with the proxy's own accounting.
// The serve loop calls this periodically so the numbers survive restarts.
func syncUsage(ctx context.Context, mgmt *management.Client, db *history.DB) error {
	u, err := mgmt.Usage(ctx)
	if err != nil {
		return err
	}
	var t history.Totals
	for model, mt := range u.ModelTotals() {
		t.TokensIn += mt.TokensIn
		t.TokensOut += mt.TokensOut
		t.Cost += history.EstimateCost(model, mt.TokensIn, mt.TokensOut)
	}
	return db.SetTotals(t)
}

func printUsage(stats history.Stats, totals history.Totals) {
	s := stdoutStyles()
	line := func(label, value string) {
		fmt.Printf("  %s  %s\n", s.Flag.Render(fmt.Sprintf("%-10s", label)), value)
	}

	ok := ""
	if stats.TotalRequests > 0 {
		ok = fmt.Sprintf(" (%d failed)", stats.FailureCount)
		if stats.FailureCount == 0 {
			ok = " (all ok)"
		}
	}
	line("Requests", fmt.Sprintf("%s%s, %s today",
		humanize.Comma(stats.TotalRequests), ok, humanize.Comma(stats.RequestsToday)))
	line("Tokens", fmt.Sprintf("%s in, %s out",
		humanize.Comma(totals.TokensIn), humanize.Comma(totals.TokensOut)))
	line("Today", fmt.Sprintf("%s tokens over %s requests",
		humanize.Comma(stats.TokensToday), humanize.Comma(stats.RequestsToday)))
	if totals.Cost > 0 {
		line("Cost", fmt.Sprintf("$%.2f estimated", totals.Cost))
	}

	if len(stats.Models) == 0 {
		return
	}
	fmt.Println()
	fmt.Printf("  %s %10s %14s\n",
		s.Flag.Render(fmt.Sprintf("%-32s", "Model")),
		s.Flag.Render("Requests"),
		s.Flag.Render("Tokens"))
	for _, m := range stats.Models {
		fmt.Printf("  %-32s %10s %14s\n",
			m.Model,
			humanize.Comma(m.Requests),
			humanize.Comma(m.Tokens))
	}
}
