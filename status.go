package main

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/proxypal/proxypal/internal/authfiles"
	"github.com/proxypal/proxypal/internal/copilot"
	"github.com/proxypal/proxypal/internal/gateway"
	"github.com/proxypal/proxypal/internal/proxyconfig"
	"github.com/proxypal/proxypal/internal/sidecar"
)

var statusAsJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusAsJSON, "json", false, "Print status as JSON")
}

type statusReport struct {
	Running   bool                   `json:"running"`
	Healthy   bool                   `json:"healthy"`
	LatencyMS int64                  `json:"latency_ms"`
	Endpoint  string                 `json:"endpoint"`
	APIKey    string                 `json:"api_key"`
	Accounts  authfiles.Status       `json:"accounts"`
	Providers gateway.ProviderHealth `json:"providers"`
	Copilot   *copilot.Status        `json:"copilot,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show proxy and account status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		gw := gateway.New(cfg.Port)
		healthy, latency := gw.Health(ctx)
		running := healthy || portOpen(cfg.Port)

		store := authStore()
		accounts, err := store.Scan()
		if err != nil {
			accounts = store.Cached()
		}

		report := statusReport{
			Running:   running,
			Healthy:   healthy,
			LatencyMS: latency.Milliseconds(),
			Endpoint:  cfg.Endpoint(),
			APIKey:    proxyconfig.LocalAPIKey,
			Accounts:  accounts,
			Providers: gateway.ComputeHealth(accounts, running, healthy, latency, time.Now()),
		}
		if cfg.Copilot.Enabled {
			cm, err := copilot.NewManager(cfg, zap.NewNop())
			if err == nil {
				st := cm.CheckHealth(ctx)
				report.Copilot = &st
			}
		}

		if statusAsJSON {
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return proxypalError{err, "Could not encode the status report."}
			}
			fmt.Println(string(out))
			return nil
		}

		printStatus(report)
		return nil
	},
}

func printStatus(r statusReport) {
	s := stdoutStyles()
	line := func(label, value string) {
		fmt.Printf("  %s  %s\n", s.Flag.Render(fmt.Sprintf("%-10s", label)), value)
	}
	switch {
	case r.Healthy:
		line("Proxy", fmt.Sprintf("running (%dms)", r.LatencyMS))
	case r.Running:
		line("Proxy", "running, not answering health checks")
	default:
		line("Proxy", s.ErrorDetails.Render("stopped"))
	}
	line("Endpoint", r.Endpoint)
	line("API key", r.APIKey)
	line("Accounts", describeAccounts(r.Accounts))
	if r.Copilot != nil {
		switch {
		case r.Copilot.Running && r.Copilot.Authenticated:
			line("Copilot", fmt.Sprintf("running on %s", r.Copilot.Endpoint))
		case r.Copilot.Running:
			line("Copilot", "running, waiting for GitHub login")
		default:
			line("Copilot", "enabled, not running")
		}
	}
	if !r.Running {
		fmt.Printf("\n  Start it with %s.\n", s.InlineCode.Render("proxypal serve"))
	}
}

func describeAccounts(a authfiles.Status) string {
	if a.Total() == 0 {
		return "none connected"
	}
	parts := make([]string, 0, 7)
	add := func(name string, n int) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", name, n))
		}
	}
	add("claude", a.Claude)
	add("codex", a.OpenAI)
	add("gemini", a.Gemini)
	add("qwen", a.Qwen)
	add("iflow", a.IFlow)
	add("vertex", a.Vertex)
	add("antigravity", a.Antigravity)
	out := fmt.Sprintf("%d connected", a.Total())
	for i, p := range parts {
		if i == 0 {
			out += " (" + p
		} else {
			out += ", " + p
		}
	}
	return out + ")"
}

func portOpen(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the proxy",
	Long: "Kills whatever is listening on the proxy port, and on the copilot-api\n" +
		"port when Copilot is enabled. Useful when a serve process was orphaned.",
	Args: cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		log := newLogger(cfg.Debug)
		defer func() { _ = log.Sync() }()
		if !portOpen(cfg.Port) {
			fmt.Println("The proxy is not running.")
			return nil
		}
		if err := sidecar.KillPort(cfg.Port, log); err != nil {
			return proxypalError{err, "Could not stop the proxy."}
		}
		if cfg.Copilot.Enabled && portOpen(cfg.Copilot.Port) {
			if err := sidecar.KillPort(cfg.Copilot.Port, log); err != nil {
				return proxypalError{err, "Could not stop copilot-api."}
			}
		}
		fmt.Println("Stopped.")
		return nil
	},
}
