package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/proxypal/proxypal/internal/management"
)

var logsLines int

func init() {
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 200, "How many lines to fetch")
	logsCmd.AddCommand(logsErrorsCmd, logsClearCmd)
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the running proxy's log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		entries, err := management.New(cfg.Port).Logs(cmd.Context(), logsLines)
		if err != nil {
			return proxypalError{err, "Could not fetch logs. Is the proxy running?"}
		}
		if len(entries) == 0 {
			fmt.Println("The log is empty.")
			return nil
		}
		s := stdoutStyles()
		for _, e := range entries {
			level := e.Level
			if level == "ERROR" || level == "WARN" {
				level = s.ErrorDetails.Render(level)
			}
			if e.Timestamp != "" {
				fmt.Printf("%s %-5s %s\n", s.Timeago.Render(e.Timestamp), level, e.Message)
			} else {
				fmt.Printf("%-5s %s\n", level, e.Message)
			}
		}
		return nil
	},
}

var logsErrorsCmd = &cobra.Command{
	Use:   "errors [file]",
	Short: "List the proxy's error log files, or print one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgmt := management.New(cfg.Port)
		if len(args) == 0 {
			files, err := mgmt.ErrorLogs(cmd.Context())
			if err != nil {
				return proxypalError{err, "Could not list error logs. Is the proxy running?"}
			}
			if len(files) == 0 {
				fmt.Println("No error logs. Good sign.")
				return nil
			}
			for _, f := range files {
				fmt.Println(f)
			}
			return nil
		}
		content, err := mgmt.ErrorLogContent(cmd.Context(), args[0])
		if err != nil {
			return proxypalError{err, "Could not fetch the error log."}
		}
		fmt.Print(content)
		return nil
	},
}

var logsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Truncate the proxy's log buffer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := management.New(cfg.Port).ClearLogs(cmd.Context()); err != nil {
			return proxypalError{err, "Could not clear the logs."}
		}
		fmt.Println("Logs cleared.")
		return nil
	},
}
