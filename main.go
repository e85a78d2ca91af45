package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/proxypal/proxypal/internal/config"
)

// Build vars, set by goreleaser.
var (
	//nolint: gochecknoglobals
	version = "dev"
	commit  = ""
	date    = ""
	builtBy = ""
)

// cfg is loaded once before any command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "proxypal",
	Short: "One local proxy for all your coding agents.",
	Long: "ProxyPal runs CLIProxyAPI for you: one local endpoint, one API key,\n" +
		"and every coding agent wired up to whichever accounts you have.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		c, err := config.Ensure()
		if err != nil {
			return proxypalError{err, "Could not load the settings file."}
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.Version = buildVersion()
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetUsageFunc(usageFunc)
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		_ = usageFunc(cmd)
	})
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newFlagParseError(err)
	})

	rootCmd.AddCommand(
		serveCmd,
		stopCmd,
		statusCmd,
		initCmd,
		configCmd,
		dashboardCmd,
		historyCmd,
		usageCmd,
		authCmd,
		keysCmd,
		ampCmd,
		agentsCmd,
		modelsCmd,
		copilotCmd,
		logsCmd,
		doctorCmd,
		manCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		handleError(err)
		os.Exit(1)
	}
}

// contextWithTimeout bounds a command's context, or just makes it cancelable
// when the timeout is zero.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), d)
}

func handleError(err error) {
	// exhaust stdin so the terminal does not swallow the next prompt
	if !isInputTTY() {
		_, _ = io.Copy(io.Discard, os.Stdin)
	}

	format := "\n%s\n\n"

	var args []any
	var ferr flagParseError
	var perr proxypalError
	switch {
	case errors.As(err, &ferr):
		format += "%s\n\n"
		args = []any{
			fmt.Sprintf(ferr.ReasonFormat(), stderrStyles().InlineCode.Render(ferr.Flag())),
			fmt.Sprintf(
				"Check out %s %s",
				stderrStyles().InlineCode.Render("proxypal --help"),
				stderrStyles().Comment.Render("for help."),
			),
		}
	case errors.As(err, &perr):
		format += "%s\n\n"
		args = []any{
			stderrStyles().ErrorHeader.String() + " " + perr.Reason(),
			stderrStyles().ErrorDetails.Render(err.Error()),
		}
	default:
		args = []any{
			stderrStyles().ErrorDetails.Render(err.Error()),
		}
	}

	fmt.Fprint(os.Stderr, stderrStyles().ErrPadding.Render(fmt.Sprintf(format, args...)))
	fmt.Fprintln(os.Stderr)
}

func useLine(cmd *cobra.Command) string {
	name := cmd.Root().Name()
	rest := strings.TrimSpace(strings.TrimPrefix(cmd.UseLine(), name))

	if stdoutRenderer().ColorProfile() == termenv.TrueColor {
		name = makeGradientText(stdoutStyles().AppName, name)
	}

	return fmt.Sprintf("%s %s", name, stdoutStyles().CliArgs.Render(rest))
}

func usageFunc(cmd *cobra.Command) error {
	fmt.Printf("%s\n\n", cmd.Short)
	fmt.Printf(
		"Usage:\n  %s\n\n",
		useLine(cmd),
	)
	if cmd.HasAvailableSubCommands() {
		fmt.Println("Commands:")
		for _, sub := range cmd.Commands() {
			if sub.Hidden || !sub.IsAvailableCommand() {
				continue
			}
			fmt.Printf(
				"  %-44s %s\n",
				stdoutStyles().Flag.Render(sub.Name()),
				stdoutStyles().FlagDesc.Render(sub.Short),
			)
		}
		fmt.Println()
	}
	fmt.Println("Options:")
	cmd.Flags().VisitAll(func(f *flag.Flag) {
		if f.Hidden {
			return
		}
		if f.Shorthand == "" {
			fmt.Printf(
				"  %-44s %s\n",
				stdoutStyles().Flag.Render("--"+f.Name),
				stdoutStyles().FlagDesc.Render(f.Usage),
			)
		} else {
			fmt.Printf(
				"  %s%s %-40s %s\n",
				stdoutStyles().Flag.Render("-"+f.Shorthand),
				stdoutStyles().FlagComma,
				stdoutStyles().Flag.Render("--"+f.Name),
				stdoutStyles().FlagDesc.Render(f.Usage),
			)
		}
	})
	if cmd == rootCmd {
		desc, example := randomExample()
		fmt.Printf(
			"\nExample:\n  %s\n  %s\n",
			stdoutStyles().Comment.Render("# "+desc),
			cheapHighlighting(stdoutStyles(), example),
		)
	}

	return nil
}

func buildVersion() string {
	result := version
	if commit != "" {
		result += " (" + commit + ")"
	}
	if date != "" {
		result += " built at " + date
	}
	if builtBy != "" {
		result += " by " + builtBy
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
		result += fmt.Sprintf(" (checksum: %s)", info.Main.Sum)
	}
	return result
}
