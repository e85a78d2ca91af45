package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"

	"github.com/proxypal/proxypal/internal/config"
	"github.com/proxypal/proxypal/internal/proxyconfig"
)

// setting is one mutable key in config.json, addressed by its JSON name.
type setting struct {
	name   string
	secret bool
	get    func() string
	set    func(string) error
}

func configSettings(c *config.Config) []setting {
	boolean := func(name string, p *bool) setting {
		return setting{name: name, get: func() string { return strconv.FormatBool(*p) }, set: func(v string) error {
			x, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s takes true or false", name)
			}
			*p = x
			return nil
		}}
	}
	number := func(name string, p *int) setting {
		return setting{name: name, get: func() string { return strconv.Itoa(*p) }, set: func(v string) error {
			x, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s takes a number", name)
			}
			*p = x
			return nil
		}}
	}
	str := func(name string, p *string) setting {
		return setting{name: name, get: func() string { return *p }, set: func(v string) error {
			*p = v
			return nil
		}}
	}
	enum := func(name string, p *string, allowed ...string) setting {
		return setting{name: name, get: func() string { return *p }, set: func(v string) error {
			for _, a := range allowed {
				if v == a {
					*p = v
					return nil
				}
			}
			return fmt.Errorf("%s takes one of %s", name, strings.Join(allowed, ", "))
		}}
	}
	hidden := func(s setting) setting {
		s.secret = true
		return s
	}
	return []setting{
		{name: "port", get: func() string { return strconv.Itoa(c.Port) }, set: func(v string) error {
			if err := validatePort(v); err != nil {
				return err
			}
			c.Port, _ = strconv.Atoi(v)
			return nil
		}},
		boolean("autoStart", &c.AutoStart),
		boolean("launchAtLogin", &c.LaunchAtLogin),
		boolean("debug", &c.Debug),
		str("proxyUrl", &c.ProxyURL),
		number("requestRetry", &c.RequestRetry),
		boolean("quotaSwitchProject", &c.QuotaSwitchProject),
		boolean("quotaSwitchPreviewModel", &c.QuotaSwitchPreviewModel),
		boolean("usageStatsEnabled", &c.UsageStatsEnabled),
		boolean("requestLogging", &c.RequestLogging),
		boolean("loggingToFile", &c.LoggingToFile),
		hidden(str("ampApiKey", &c.AmpAPIKey)),
		enum("ampRoutingMode", &c.AmpRoutingMode, config.RoutingMappings, config.RoutingOpenAI),
		boolean("forceModelMappings", &c.ForceModelMappings),
		enum("thinkingBudgetMode", &c.ThinkingBudgetMode,
			config.BudgetLow, config.BudgetMedium, config.BudgetHigh, config.BudgetCustom),
		number("thinkingBudgetCustom", &c.ThinkingBudgetCustom),
		boolean("copilot.enabled", &c.Copilot.Enabled),
		number("copilot.port", &c.Copilot.Port),
		enum("copilot.accountType", &c.Copilot.AccountType, "individual", "business", "enterprise"),
		hidden(str("copilot.githubToken", &c.Copilot.GitHubToken)),
		number("copilot.rateLimit", &c.Copilot.RateLimit),
		boolean("copilot.rateLimitWait", &c.Copilot.RateLimitWait),
		str("sidecarCommand", &c.SidecarCommand),
	}
}

func findSetting(c *config.Config, name string) (setting, error) {
	for _, s := range configSettings(c) {
		if s.name == name {
			return s, nil
		}
	}
	return setting{}, newUserErrorf("unknown setting %q; %s lists them all", name, "proxypal config show")
}

// maskSecret keeps enough of a key visible to tell entries apart.
func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + "…" + v[len(v)-4:]
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change ProxyPal settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List all settings",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		s := stdoutStyles()
		for _, st := range configSettings(cfg) {
			v := st.get()
			if st.secret {
				v = maskSecret(v)
			}
			fmt.Printf("%s %s\n", s.Flag.Render(fmt.Sprintf("%-26s", st.name)), v)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		st, err := findSetting(cfg, args[0])
		if err != nil {
			return err
		}
		fmt.Println(st.get())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		st, err := findSetting(cfg, args[0])
		if err != nil {
			return err
		}
		if err := st.set(args[1]); err != nil {
			return newUserErrorf("%s", err)
		}
		if err := cfg.Save(); err != nil {
			return proxypalError{err, "Could not save the settings file."}
		}
		v := st.get()
		if st.secret {
			v = maskSecret(v)
		}
		fmt.Printf("%s = %s\n", st.name, v)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file path",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		fmt.Println(cfg.SettingsPath)
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the settings file in your $EDITOR",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		c, err := editor.Cmd("proxypal", cfg.SettingsPath)
		if err != nil {
			return proxypalError{err, "Could not edit your settings file."}
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return proxypalError{err, "Could not edit your settings file."}
		}
		if _, err := config.EnsureAt(cfg.SettingsPath); err != nil {
			return proxypalError{err, "Your settings file is not valid after editing."}
		}
		return nil
	},
}

var configToStdout bool

func init() {
	configGenerateCmd.Flags().BoolVar(&configToStdout, "stdout", false, "Print the YAML instead of writing it")
	configCmd.AddCommand(configShowCmd, configGetCmd, configSetCmd, configPathCmd, configEditCmd, configGenerateCmd)
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Render the CLIProxyAPI configuration",
	Long: "Renders proxy-config.yaml from the current settings, the file the\n" +
		"sidecar is started with. serve regenerates it on every start, this\n" +
		"command is for inspecting what will be handed to the proxy.",
	Args: cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if configToStdout {
			out, err := proxyconfig.Render(cfg)
			if err != nil {
				return proxypalError{err, "Could not render the proxy configuration."}
			}
			fmt.Print(string(out))
			return nil
		}
		path, err := proxyconfig.Write(cfg)
		if err != nil {
			return proxypalError{err, "Could not write the proxy configuration."}
		}
		fmt.Println(path)
		return nil
	},
}
