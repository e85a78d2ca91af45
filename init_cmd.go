package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/proxypal/proxypal/internal/proxyconfig"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive first-time setup",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if !isInputTTY() {
			return newUserErrorf("init needs a terminal; use %s instead", "proxypal config set")
		}

		port := strconv.Itoa(cfg.Port)
		ampKey := cfg.AmpAPIKey
		stats := cfg.UsageStatsEnabled
		logging := cfg.RequestLogging
		copilotOn := cfg.Copilot.Enabled

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Proxy port").
					Description("CLIProxyAPI will listen on this port.").
					Value(&port).
					Validate(validatePort),
				huh.NewInput().
					Title("Amp API key").
					Description("Optional. Unlocks Amp model routing.").
					EchoMode(huh.EchoModePassword).
					Value(&ampKey),
				huh.NewConfirm().
					Title("Record requests into the local history?").
					Value(&logging),
				huh.NewConfirm().
					Title("Enable GitHub Copilot models?").
					Description("Runs copilot-api next to the proxy. Needs Node.js.").
					Value(&copilotOn),
				huh.NewConfirm().
					Title("Let the proxy collect usage statistics?").
					Value(&stats),
			),
		)
		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return proxypalError{err, "Setup canceled."}
			}
			return proxypalError{err, "Setup failed."}
		}

		cfg.Port, _ = strconv.Atoi(port)
		cfg.AmpAPIKey = ampKey
		cfg.UsageStatsEnabled = stats
		cfg.RequestLogging = logging
		cfg.Copilot.Enabled = copilotOn
		if err := cfg.Save(); err != nil {
			return proxypalError{err, "Could not save the settings file."}
		}
		path, err := proxyconfig.Write(cfg)
		if err != nil {
			return proxypalError{err, "Could not write the proxy configuration."}
		}

		s := stdoutStyles()
		fmt.Println()
		fmt.Println(s.Comment.Render("Settings written to " + cfg.SettingsPath))
		fmt.Println(s.Comment.Render("Proxy configuration written to " + path))
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Printf("  1. %s to connect an account\n", s.InlineCode.Render("proxypal auth login claude"))
		fmt.Printf("  2. %s to start the proxy\n", s.InlineCode.Render("proxypal serve"))
		fmt.Printf("  3. %s to point your tools at it\n", s.InlineCode.Render("proxypal agents configure claude-code"))
		return nil
	},
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return errors.New("enter a port between 1 and 65535")
	}
	return nil
}
