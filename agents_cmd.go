package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/proxypal/proxypal/internal/agents"
	"github.com/proxypal/proxypal/internal/cache"
	"github.com/proxypal/proxypal/internal/config"
	"github.com/proxypal/proxypal/internal/gateway"
	"github.com/proxypal/proxypal/internal/proto"
)

const modelsCacheTTL = 5 * time.Minute

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Point coding agents at the proxy",
}

func init() {
	agentsConfigureCmd.Flags().BoolVar(&agentsInstall, "install", false, "Append environment exports to your shell profile")
	agentsEnvCmd.Flags().BoolVarP(&agentsCopy, "copy", "c", false, "Copy the exports to the clipboard")
	agentsTestCmd.Flags().BoolVar(&agentsLive, "live", false, "Send one real Claude request through the proxy")
	agentsTestCmd.Flags().StringVar(&agentsLiveModel, "model", "claude-sonnet-4-5", "Model used with --live")
	agentsCmd.AddCommand(agentsListCmd, agentsConfigureCmd, agentsEnvCmd, agentsRemoveCmd, agentsTestCmd)
}

func newConfigurer() (*agents.Configurer, error) {
	conf, err := agents.New(cfg)
	if err != nil {
		return nil, proxypalError{err, "Could not find your home directory."}
	}
	return conf, nil
}

// proxyModels returns the proxy's model listing, preferring a live call and
// falling back to the cached copy so agents can be configured while the
// proxy is down.
func proxyModels(ctx context.Context) []proto.ModelInfo {
	if portOpen(cfg.Port) {
		if live, err := gateway.New(cfg.Port).Models(ctx); err == nil {
			if mc, cerr := cache.NewModels(config.CachePath()); cerr == nil {
				_ = mc.Write(&live, modelsCacheTTL)
			}
			return live
		}
	}
	if mc, err := cache.NewModels(config.CachePath()); err == nil {
		var cached []proto.ModelInfo
		if err := mc.Read(&cached); err == nil {
			return cached
		}
	}
	return nil
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show detected agents and their status",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		conf, err := newConfigurer()
		if err != nil {
			return err
		}
		s := stdoutStyles()
		for _, t := range conf.Detect() {
			state := "not installed"
			switch {
			case t.Configured:
				state = "configured"
			case t.Installed:
				state = "installed"
			}
			extra := ""
			if t.ConfigPath != "" {
				extra = " " + s.Comment.Render(t.ConfigPath)
			}
			fmt.Printf("  %-16s %-14s%s\n", t.ID, state, extra)
		}
		return nil
	},
}

var agentsInstall bool

var agentsConfigureCmd = &cobra.Command{
	Use:   "configure <agent>",
	Short: "Write an agent's configuration for the proxy",
	Long: "Writes the agent's own config files, or prints the environment\n" +
		"exports for agents configured through the shell. Supported agents:\n" +
		"claude-code, codex, gemini-cli, factory-droid, amp-cli, opencode,\n" +
		"continue.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: agents.All,
	RunE: func(cmd *cobra.Command, args []string) error {
		agent := args[0]
		if !slices.Contains(agents.All, agent) {
			return newUserErrorf("unknown agent %q, see %s", agent, "proxypal agents list")
		}
		conf, err := newConfigurer()
		if err != nil {
			return err
		}
		res, err := conf.Configure(agent, proxyModels(cmd.Context()))
		if err != nil {
			return proxypalError{err, fmt.Sprintf("Could not configure %s.", agent)}
		}
		printAgentResult(res)
		if agentsInstall {
			if res.ShellConfig == "" {
				return newUserErrorf("%s is not configured through the shell", agent)
			}
			path, err := conf.AppendProfile(res.ShellConfig)
			if err != nil {
				return proxypalError{err, "Could not update your shell profile."}
			}
			fmt.Printf("Added to %s. Restart your terminal to apply.\n", path)
		}
		return nil
	},
}

func printAgentResult(res *agents.Result) {
	s := stdoutStyles()
	if res.ShellConfig != "" {
		fmt.Println(res.ShellConfig)
	}
	if res.ConfigPath != "" {
		fmt.Printf("Wrote %s\n", res.ConfigPath)
	}
	if res.AuthPath != "" {
		fmt.Printf("Wrote %s\n", res.AuthPath)
	}
	if res.ModelsConfigured > 0 {
		fmt.Printf("%d models configured.\n", res.ModelsConfigured)
	}
	if res.Instructions != "" {
		fmt.Println(s.Comment.Render(res.Instructions))
	}
}

var agentsCopy bool

var agentsEnvCmd = &cobra.Command{
	Use:   "env <agent>",
	Short: "Print an agent's environment exports",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		agent := args[0]
		if agent != agents.ClaudeCode && agent != agents.GeminiCLI {
			return newUserErrorf("%s is configured through files, run %s instead",
				agent, fmt.Sprintf("proxypal agents configure %s", agent))
		}
		conf, err := newConfigurer()
		if err != nil {
			return err
		}
		res, err := conf.Configure(agent, nil)
		if err != nil {
			return proxypalError{err, fmt.Sprintf("Could not configure %s.", agent)}
		}
		fmt.Println(res.ShellConfig)
		if agentsCopy {
			if err := clipboard.WriteAll(res.ShellConfig); err != nil {
				return proxypalError{err, "Could not copy to the clipboard."}
			}
			fmt.Println("Copied to clipboard.")
		}
		return nil
	},
}

var agentsRemoveCmd = &cobra.Command{
	Use:   "remove <agent>",
	Short: "Undo an agent's ProxyPal configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		conf, err := newConfigurer()
		if err != nil {
			return err
		}
		path, err := conf.Remove(args[0])
		if err != nil {
			return proxypalError{err, fmt.Sprintf("Could not remove the %s configuration.", args[0])}
		}
		fmt.Printf("Removed from %s.\n", path)
		return nil
	},
}

var (
	agentsLive      bool
	agentsLiveModel string
)

var agentsTestCmd = &cobra.Command{
	Use:   "test [agent]",
	Short: "Check that agents pointed at the proxy get answers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent := "your agent"
		if len(args) > 0 {
			agent = args[0]
		}
		gw := gateway.New(cfg.Port)
		if agentsLive {
			res := gw.ClaudeProbe(cmd.Context(), agentsLiveModel)
			if !res.Success {
				return newUserErrorf("%s", res.Message)
			}
			fmt.Printf("%s (%dms)\n", res.Message, res.LatencyMS)
			return nil
		}
		res := gw.TestAgent(cmd.Context(), agent)
		if !res.Success {
			return proxypalError{
				fmt.Errorf("%s", res.Message),
				"The proxy did not answer. Is it running?",
			}
		}
		fmt.Printf("%s (%dms)\n", res.Message, res.LatencyMS)
		return nil
	},
}
