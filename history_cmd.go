package main

import (
	"fmt"
	"time"

	timea "github.com/caarlos0/timea.go"
	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/proxypal/proxypal/internal/config"
	"github.com/proxypal/proxypal/internal/history"
	"github.com/proxypal/proxypal/internal/proto"
)

var (
	historyLimit int
	historySince time.Duration
	historyYes   bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "Maximum entries to show")
	historyCmd.Flags().VarP(newDurationFlag(0, &historySince), "since", "s", "Only requests newer than this, e.g. 30m or 2h")
	historyClearCmd.Flags().BoolVarP(&historyYes, "yes", "y", false, "Skip the confirmation prompt")
	historyCmd.AddCommand(historyClearCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent proxied requests",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		db, err := history.Open(config.HistoryDBPath())
		if err != nil {
			return proxypalError{err, "Could not open the history database."}
		}
		defer func() { _ = db.Close() }()

		var recs []proto.RequestRecord
		if historySince > 0 {
			recs, err = db.Since(time.Now().Add(-historySince))
		} else {
			recs, err = db.Recent(historyLimit)
		}
		if err != nil {
			return proxypalError{err, "Could not read the request history."}
		}
		if len(recs) == 0 {
			s := stdoutStyles()
			fmt.Println("No requests recorded yet.")
			fmt.Printf("Run %s and point an agent at the proxy.\n", s.InlineCode.Render("proxypal serve"))
			return nil
		}
		for _, r := range recs {
			printRequest(r)
		}
		return nil
	},
}

func printRequest(r proto.RequestRecord) {
	s := stdoutStyles()
	status := fmt.Sprintf("%d", r.Status)
	if r.Status >= 400 {
		status = s.ErrorDetails.Render(status)
	}
	model := r.Model
	if model == "" {
		model = r.Path
	}
	detail := fmt.Sprintf("%s/%s tok", humanize.Comma(r.TokensIn), humanize.Comma(r.TokensOut))
	if r.Duration > 0 {
		detail += fmt.Sprintf(" in %s", r.Duration.Truncate(time.Millisecond))
	}
	if r.Cost > 0 {
		detail += fmt.Sprintf(" $%.4f", r.Cost)
	}
	fmt.Printf(
		"%s\t%s\t%s\t%s\n",
		s.Timeago.Render(timea.Of(r.Timestamp)),
		status,
		model,
		s.Comment.Render(detail),
	)
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all request history",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if !historyYes {
			if !isInputTTY() {
				return newUserErrorf("pass --yes to clear the history without a prompt")
			}
			var ok bool
			if err := huh.NewConfirm().Title("Delete all request history?").Value(&ok).Run(); err != nil {
				return proxypalError{err, "Could not read your answer."}
			}
			if !ok {
				return nil
			}
		}
		db, err := history.Open(config.HistoryDBPath())
		if err != nil {
			return proxypalError{err, "Could not open the history database."}
		}
		defer func() { _ = db.Close() }()
		if err := db.Clear(); err != nil {
			return proxypalError{err, "Could not clear the history."}
		}
		fmt.Println("History cleared.")
		return nil
	},
}
