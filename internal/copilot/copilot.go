// Package copilot manages the optional copilot-api sidecar, an npm package
// that fronts GitHub Copilot with an OpenAI-compatible API the proxy can use
// as an upstream.
//
// ProxyPal never talks to GitHub itself: copilot-api owns the device login,
// this package just starts it, watches its output for the login prompt, and
// reports health.
package copilot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/proxypal/proxypal/internal/config"
)

const (
	startProbeTimeout  = 2 * time.Second
	healthProbeTimeout = 3 * time.Second
	// copilot-api typically authenticates within 5-15s on first run; poll up
	// to 30s to catch slow logins.
	authPollEvery = 500 * time.Millisecond
	authPollMax   = 60
)

// Status is the last known state of the copilot-api process.
type Status struct {
	Running       bool   `json:"running"`
	Port          int    `json:"port"`
	Endpoint      string `json:"endpoint"`
	Authenticated bool   `json:"authenticated"`
	// AuthPrompt carries the device-login line from copilot-api's output
	// while a GitHub login is pending.
	AuthPrompt string `json:"authPrompt,omitempty"`
}

// Manager starts, stops, and health-checks the copilot-api process.
type Manager struct {
	cfg  *config.Config
	home string
	log  *zap.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	status Status
}

// NewManager makes a Manager for the configured copilot settings.
func NewManager(cfg *config.Config, log *zap.Logger) (*Manager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not find home directory: %w", err)
	}
	return NewManagerAt(home, cfg, log), nil
}

// NewManagerAt is NewManager with an explicit home directory, mostly for
// tests.
func NewManagerAt(home string, cfg *config.Config, log *zap.Logger) *Manager {
	port := cfg.Copilot.Port
	return &Manager{
		cfg:  cfg,
		home: home,
		log:  log,
		status: Status{
			Port:     port,
			Endpoint: fmt.Sprintf("http://localhost:%d", port),
		},
	}
}

// Status returns the last known state without touching the network.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// CheckHealth probes /v1/models and updates the status. copilot-api answers
// it only once the GitHub login completed, so a good response means both
// running and authenticated.
func (m *Manager) CheckHealth(ctx context.Context) Status {
	ok := m.probe(ctx, healthProbeTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Running = ok
	m.status.Authenticated = ok
	if ok {
		m.status.Port = m.cfg.Copilot.Port
		m.status.Endpoint = fmt.Sprintf("http://localhost:%d", m.cfg.Copilot.Port)
		m.status.AuthPrompt = ""
	}
	return m.status
}

// Start launches copilot-api and waits for it to authenticate, for up to 30
// seconds. When something on the port already answers, Start adopts it
// instead of spawning a second copy.
func (m *Manager) Start(ctx context.Context) (Status, error) {
	if !m.cfg.Copilot.Enabled {
		return m.Status(), fmt.Errorf("copilot is not enabled in settings")
	}
	port := m.cfg.Copilot.Port

	if m.probe(ctx, startProbeTimeout) {
		m.log.Info("copilot-api already running", zap.Int("port", port))
		return m.markRunning(true), nil
	}

	// Kill anything we spawned earlier and give the port a moment to free.
	m.kill()
	time.Sleep(500 * time.Millisecond)

	det := Detect(ctx, m.home)
	if !det.NodeAvailable {
		checked := strings.Join(det.CheckedNodePaths, ", ")
		if checked == "" {
			checked = "none"
		}
		return m.Status(), fmt.Errorf(
			"Node.js is required for GitHub Copilot support (checked: %s); install it from https://nodejs.org/ or via a version manager (nvm, volta, fnm)",
			checked)
	}

	bin, args := det.command()
	if bin == "" {
		return m.Status(), fmt.Errorf(
			"npx binary not found (required to run copilot-api); node was found at %s, make sure npm ships with it",
			det.NodeBin)
	}
	args = append(args, "start", "--port", strconv.Itoa(port))
	if t := m.cfg.Copilot.AccountType; t != "" {
		args = append(args, "--account", t)
	}
	if n := m.cfg.Copilot.RateLimit; n > 0 {
		args = append(args, "--rate-limit", strconv.Itoa(n))
	}
	if m.cfg.Copilot.RateLimitWait {
		args = append(args, "--rate-limit-wait")
	}
	if token, err := GitHubToken(m.cfg.Copilot); err == nil && token != "" {
		args = append(args, "--github-token", token)
	}

	m.log.Info("starting copilot-api", zap.String("bin", bin), zap.Int("port", port))

	cmd := exec.Command(bin, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return m.Status(), fmt.Errorf("could not pipe copilot-api output: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return m.Status(), fmt.Errorf("could not pipe copilot-api output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return m.Status(), fmt.Errorf("could not start copilot-api: %w", err)
	}

	m.mu.Lock()
	m.cmd = cmd
	m.status = Status{
		Running:  true,
		Port:     port,
		Endpoint: fmt.Sprintf("http://localhost:%d", port),
	}
	m.mu.Unlock()

	go m.scanOutput(stdout)
	go m.scanErrors(stderr)
	go m.reap(cmd)

	m.awaitAuth(ctx)
	return m.Status(), nil
}

// Stop kills a copilot-api process started by this Manager.
func (m *Manager) Stop() (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.status.Running {
		return m.status, nil
	}
	if m.cmd != nil && m.cmd.Process != nil {
		if err := m.cmd.Process.Kill(); err != nil {
			return m.status, fmt.Errorf("could not kill copilot-api: %w", err)
		}
	}
	m.cmd = nil
	m.status.Running = false
	m.status.Authenticated = false
	return m.status, nil
}

func (m *Manager) markRunning(authenticated bool) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Running = true
	m.status.Port = m.cfg.Copilot.Port
	m.status.Endpoint = fmt.Sprintf("http://localhost:%d", m.cfg.Copilot.Port)
	if authenticated {
		m.status.Authenticated = true
		m.status.AuthPrompt = ""
	}
	return m.status
}

func (m *Manager) kill() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd != nil && m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
	}
	m.cmd = nil
}

// scanOutput watches copilot-api's stdout for the logged-in confirmation and
// the device-login prompt.
func (m *Manager) scanOutput(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		m.log.Debug("copilot-api", zap.String("output", line))

		if strings.Contains(line, "Logged in as") {
			m.mu.Lock()
			m.status.Authenticated = true
			m.status.AuthPrompt = ""
			m.mu.Unlock()
			m.log.Info("copilot-api authenticated")
		}
		if strings.Contains(line, "https://github.com/login/device") {
			m.mu.Lock()
			m.status.AuthPrompt = strings.TrimSpace(line)
			m.mu.Unlock()
			m.log.Warn("github login required", zap.String("prompt", strings.TrimSpace(line)))
		}
	}
}

func (m *Manager) scanErrors(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m.log.Warn("copilot-api", zap.String("output", sc.Text()))
	}
}

// reap marks the status stopped when the process exits on its own.
func (m *Manager) reap(cmd *exec.Cmd) {
	err := cmd.Wait()
	m.mu.Lock()
	if m.cmd == cmd {
		m.cmd = nil
		m.status.Running = false
		m.status.Authenticated = false
	}
	m.mu.Unlock()
	if err != nil {
		m.log.Warn("copilot-api exited", zap.Error(err))
	} else {
		m.log.Info("copilot-api exited")
	}
}

// awaitAuth polls until the stdout watcher or the health endpoint reports an
// authenticated process, or the poll budget runs out.
func (m *Manager) awaitAuth(ctx context.Context) {
	ticker := time.NewTicker(authPollEvery)
	defer ticker.Stop()
	for i := 0; i < authPollMax; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if m.Status().Authenticated {
			return
		}
		if m.probe(ctx, startProbeTimeout) {
			m.markRunning(true)
			return
		}
		if i > 0 && i%10 == 0 {
			m.log.Info("waiting for copilot authentication",
				zap.Duration("elapsed", time.Duration(i)*authPollEvery))
		}
	}
}

func (m *Manager) probe(ctx context.Context, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	url := fmt.Sprintf("http://127.0.0.1:%d/v1/models", m.cfg.Copilot.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
