package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/proxypal/proxypal/internal/copilot"
	"github.com/proxypal/proxypal/internal/sidecar"
)

var copilotCmd = &cobra.Command{
	Use:   "copilot",
	Short: "GitHub Copilot models through copilot-api",
	Long: "Serves your GitHub Copilot subscription as OpenAI-compatible models\n" +
		"by running the copilot-api npm package next to the proxy. Needs\n" +
		"Node.js and a Copilot-entitled GitHub account.",
}

var copilotToken string

func init() {
	copilotEnableCmd.Flags().StringVar(&copilotToken, "token", "", "GitHub token to use instead of the device login")
	copilotCmd.AddCommand(
		copilotEnableCmd,
		copilotDisableCmd,
		copilotStartCmd,
		copilotStopCmd,
		copilotStatusCmd,
		copilotInstallCmd,
	)
}

var copilotEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable Copilot support",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		cfg.Copilot.Enabled = true
		if copilotToken != "" {
			cfg.Copilot.GitHubToken = copilotToken
		}
		if err := cfg.Save(); err != nil {
			return proxypalError{err, "Could not save the settings file."}
		}
		s := stdoutStyles()
		fmt.Println("Copilot enabled.")
		fmt.Printf("It starts with the proxy: %s.\n", s.InlineCode.Render("proxypal serve"))
		return nil
	},
}

var copilotDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable Copilot support",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		port := cfg.Copilot.Port
		cfg.Copilot.Enabled = false
		if err := cfg.Save(); err != nil {
			return proxypalError{err, "Could not save the settings file."}
		}
		if portOpen(port) {
			log := newLogger(cfg.Debug)
			defer func() { _ = log.Sync() }()
			if err := sidecar.KillPort(port, log); err != nil {
				return proxypalError{err, "Could not stop the running copilot-api."}
			}
		}
		fmt.Println("Copilot disabled.")
		return nil
	},
}

var copilotStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run copilot-api in the foreground",
	Long: "Runs copilot-api on its own, without the proxy, until interrupted.\n" +
		"Useful for completing the GitHub device login before the first serve.",
	Args: cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if !cfg.Copilot.Enabled {
			return newUserErrorf("enable Copilot first: %s", "proxypal copilot enable")
		}
		log := newLogger(cfg.Debug)
		defer func() { _ = log.Sync() }()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		m, err := copilot.NewManager(cfg, log)
		if err != nil {
			return proxypalError{err, "Could not find your home directory."}
		}
		st, err := m.Start(ctx)
		if err != nil {
			return proxypalError{err, "Could not start copilot-api."}
		}
		if st.AuthPrompt != "" {
			fmt.Println(st.AuthPrompt)
		}
		if st.Authenticated {
			fmt.Printf("copilot-api running on %s. Press ctrl+c to stop.\n", st.Endpoint)
		}
		<-ctx.Done()
		_, err = m.Stop()
		return err
	},
}

var copilotStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running copilot-api",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if !portOpen(cfg.Copilot.Port) {
			fmt.Println("copilot-api is not running.")
			return nil
		}
		log := newLogger(cfg.Debug)
		defer func() { _ = log.Sync() }()
		if err := sidecar.KillPort(cfg.Copilot.Port, log); err != nil {
			return proxypalError{err, "Could not stop copilot-api."}
		}
		fmt.Println("Stopped.")
		return nil
	},
}

var copilotStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Copilot support status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s := stdoutStyles()
		line := func(label, value string) {
			fmt.Printf("  %s  %s\n", s.Flag.Render(fmt.Sprintf("%-10s", label)), value)
		}
		if !cfg.Copilot.Enabled {
			line("Copilot", "disabled")
			return nil
		}

		det := copilot.Detect(cmd.Context(), homeDir())
		switch {
		case !det.NodeAvailable:
			line("Node.js", s.ErrorDetails.Render("not found"))
		case det.Version != "":
			line("Node.js", fmt.Sprintf("%s (%s)", det.Version, det.NodeBin))
		default:
			line("Node.js", det.NodeBin)
		}
		if det.Installed {
			line("Package", "copilot-api installed")
		} else {
			line("Package", "copilot-api runs through npx")
		}
		if token, err := copilot.GitHubToken(cfg.Copilot); err == nil && token != "" {
			line("Token", maskSecret(token))
		} else {
			line("Token", "none, device login on first start")
		}

		log := newLogger(cfg.Debug)
		defer func() { _ = log.Sync() }()
		m, err := copilot.NewManager(cfg, log)
		if err == nil {
			st := m.CheckHealth(cmd.Context())
			if st.Authenticated {
				line("Service", fmt.Sprintf("running on %s", st.Endpoint))
			} else {
				line("Service", "not running")
			}
		}
		return nil
	},
}

var copilotInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install copilot-api globally with npm",
	Long: "Installs the copilot-api package so starts skip the npx download.\n" +
		"Optional, npx works fine for occasional use.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		log := newLogger(cfg.Debug)
		defer func() { _ = log.Sync() }()
		m, err := copilot.NewManager(cfg, log)
		if err != nil {
			return proxypalError{err, "Could not find your home directory."}
		}
		det, err := m.Install(cmd.Context())
		if err != nil {
			return proxypalError{err, "Could not install copilot-api."}
		}
		fmt.Printf("Installed %s.\n", det.CopilotBin)
		return nil
	},
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
