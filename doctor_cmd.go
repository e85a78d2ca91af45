package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	xstrings "github.com/charmbracelet/x/exp/strings"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/proxypal/proxypal/internal/agents"
	"github.com/proxypal/proxypal/internal/config"
	"github.com/proxypal/proxypal/internal/copilot"
	"github.com/proxypal/proxypal/internal/gateway"
	"github.com/proxypal/proxypal/internal/sidecar"
)

const doctorTimeout = 15 * time.Second

// doctorCheck is one finding in the doctor report.
type doctorCheck struct {
	name   string
	ok     bool
	detail string
	hint   string
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local setup for problems",
	Long: "Runs every diagnostic at once: the settings file, the proxy binary,\n" +
		"the port, connected providers, and agent integrations.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := contextWithTimeout(cmd, doctorTimeout)
		defer cancel()

		runs := []func(context.Context) doctorCheck{
			checkSettings,
			checkBinary,
			checkProxy,
			checkProviders,
			checkAgents,
		}
		if cfg.Copilot.Enabled {
			runs = append(runs, checkCopilot)
		}

		checks := make([]doctorCheck, len(runs))
		g, gctx := errgroup.WithContext(ctx)
		for i, run := range runs {
			g.Go(func() error {
				checks[i] = run(gctx)
				return nil
			})
		}
		// checks report, they never fail the group
		_ = g.Wait()

		fmt.Print(renderMarkdown(doctorReport(checks)))

		if n := failedChecks(checks); n > 0 {
			return proxypalError{
				fmt.Errorf("%d of %d checks failed", n, len(checks)),
				"Found problems with your setup.",
			}
		}
		return nil
	},
}

// doctorReport formats the findings as markdown. renderMarkdown styles it
// for terminals; pipes get it as is.
func doctorReport(checks []doctorCheck) string {
	var b strings.Builder
	b.WriteString("# proxypal doctor\n\n")
	for _, c := range checks {
		mark := "✓"
		if !c.ok {
			mark = "✗"
		}
		fmt.Fprintf(&b, "- %s **%s**: %s\n", mark, c.name, c.detail)
		if c.hint != "" {
			fmt.Fprintf(&b, "  - %s\n", c.hint)
		}
	}
	b.WriteString("\n")
	switch n := failedChecks(checks); n {
	case 0:
		b.WriteString("Everything looks good.\n")
	case 1:
		b.WriteString("Found one problem.\n")
	default:
		fmt.Fprintf(&b, "Found %d problems.\n", n)
	}
	return b.String()
}

func failedChecks(checks []doctorCheck) int {
	var n int
	for _, c := range checks {
		if !c.ok {
			n++
		}
	}
	return n
}

func renderMarkdown(md string) string {
	if !isOutputTTY() {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(76),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// checkSettings re-reads the settings file from disk so syntax errors
// surface even though this process already holds a parsed copy.
func checkSettings(context.Context) doctorCheck {
	c := doctorCheck{name: "Settings"}
	fresh, err := config.EnsureAt(cfg.SettingsPath)
	if err != nil {
		c.detail = err.Error()
		c.hint = "fix or remove the file, then run `proxypal init`"
		return c
	}
	if fresh.Port < 1 || fresh.Port > 65535 {
		c.detail = fmt.Sprintf("port %d is out of range", fresh.Port)
		c.hint = "pick one with `proxypal config set port 8317`"
		return c
	}
	var incomplete int
	for _, p := range fresh.AmpOpenAIProviders {
		if !p.Valid() {
			incomplete++
		}
	}
	if incomplete > 0 {
		c.detail = fmt.Sprintf("%d custom providers are missing a name, base URL, or key", incomplete)
		c.hint = "review them with `proxypal amp providers list`"
		return c
	}
	c.ok = true
	c.detail = fmt.Sprintf("`%s`", fresh.SettingsPath)
	return c
}

func checkBinary(context.Context) doctorCheck {
	c := doctorCheck{name: "Proxy binary"}
	bin, _, err := sidecar.ResolveCommand(cfg)
	if err != nil {
		c.detail = "cliproxyapi is not installed"
		c.hint = "get it from https://github.com/router-for-me/CLIProxyAPI, or set sidecarCommand in the settings"
		return c
	}
	c.ok = true
	c.detail = fmt.Sprintf("`%s`", bin)
	return c
}

func checkProxy(ctx context.Context) doctorCheck {
	c := doctorCheck{name: "Proxy"}
	healthy, latency := gateway.New(cfg.Port).Health(ctx)
	switch {
	case healthy:
		c.ok = true
		c.detail = fmt.Sprintf("answering on port %d (%dms)", cfg.Port, latency.Milliseconds())
	case portOpen(cfg.Port):
		c.detail = fmt.Sprintf("port %d is taken, but whatever owns it fails health checks", cfg.Port)
		c.hint = "run `proxypal stop`, then `proxypal serve`"
	default:
		c.detail = "not running"
		c.hint = "start it with `proxypal serve`"
	}
	return c
}

func checkProviders(ctx context.Context) doctorCheck {
	c := doctorCheck{name: "Providers"}
	store := authStore()
	accounts, err := store.Scan()
	if err != nil {
		accounts = store.Cached()
	}
	keys := len(cfg.ClaudeAPIKeys) + len(cfg.GeminiAPIKeys) + len(cfg.CodexAPIKeys)
	if accounts.Total() == 0 && keys == 0 {
		c.detail = "no accounts connected and no API keys configured"
		c.hint = "connect one with `proxypal auth login claude`"
		return c
	}

	healthy, latency := gateway.New(cfg.Port).Health(ctx)
	running := healthy || portOpen(cfg.Port)
	if !running {
		// the Proxy check already reports the outage
		c.ok = true
		c.detail = describeAccounts(accounts) + "; health unknown while the proxy is stopped"
		return c
	}
	health := gateway.ComputeHealth(accounts, running, healthy, latency, time.Now())
	if names := unhealthyProviders(health); len(names) > 0 {
		c.detail = fmt.Sprintf("%s connected but not answering through the proxy", xstrings.EnglishJoin(names, true))
		c.hint = "check `proxypal logs errors`"
		return c
	}
	c.ok = true
	c.detail = describeAccounts(accounts)
	if keys > 0 {
		c.detail += fmt.Sprintf(", %d API keys", keys)
	}
	return c
}

// unhealthyProviders lists providers that hold credentials yet failed the
// probe.
func unhealthyProviders(h gateway.ProviderHealth) []string {
	var out []string
	add := func(name string, st gateway.HealthStatus) {
		if st.Status == gateway.StatusDegraded || st.Status == gateway.StatusOffline {
			out = append(out, name)
		}
	}
	add("claude", h.Claude)
	add("codex", h.OpenAI)
	add("gemini", h.Gemini)
	add("qwen", h.Qwen)
	add("iflow", h.IFlow)
	add("vertex", h.Vertex)
	add("antigravity", h.Antigravity)
	return out
}

func checkAgents(context.Context) doctorCheck {
	c := doctorCheck{name: "Agents"}
	conf, err := agents.New(cfg)
	if err != nil {
		c.detail = err.Error()
		return c
	}
	var installed, configured []string
	for _, tool := range conf.DetectCLI() {
		if !tool.Installed {
			continue
		}
		installed = append(installed, tool.Name)
		if tool.Configured {
			configured = append(configured, tool.Name)
		}
	}
	switch {
	case len(installed) == 0:
		c.ok = true
		c.detail = "no coding agents found on PATH"
	case len(configured) == 0:
		c.detail = fmt.Sprintf("%s installed, none pointed at the proxy", xstrings.EnglishJoin(installed, true))
		c.hint = "wire one up with `proxypal agents configure <agent>`"
	default:
		c.ok = true
		c.detail = fmt.Sprintf("%s pointed at the proxy", xstrings.EnglishJoin(configured, true))
	}
	return c
}

func checkCopilot(ctx context.Context) doctorCheck {
	c := doctorCheck{name: "Copilot"}
	cm, err := copilot.NewManager(cfg, zap.NewNop())
	if err != nil {
		c.detail = err.Error()
		return c
	}
	st := cm.CheckHealth(ctx)
	switch {
	case st.Running && st.Authenticated:
		c.ok = true
		c.detail = fmt.Sprintf("copilot-api answering on %s", st.Endpoint)
	case st.Running:
		c.detail = "copilot-api is running but not logged in to GitHub"
		c.hint = "run `proxypal copilot start` and follow the device-login link"
	default:
		det := copilot.Detect(ctx, homeDir())
		if !det.NodeAvailable {
			c.detail = "enabled, but Node.js was not found"
			c.hint = "install Node.js from https://nodejs.org/"
			return c
		}
		c.detail = "enabled, not running"
		c.hint = "start it with `proxypal copilot start` or `proxypal serve`"
	}
	return c
}
