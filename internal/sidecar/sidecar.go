// Package sidecar supervises the CLIProxyAPI process. ProxyPal never touches
// proxy traffic itself: it renders the proxy's configuration, clears the
// port, spawns the binary, and watches it until it exits.
package sidecar

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	shellwords "github.com/caarlos0/go-shellwords"
	"github.com/charmbracelet/x/exp/ordered"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/proxypal/proxypal/internal/config"
	"github.com/proxypal/proxypal/internal/proxyconfig"
)

// ErrAlreadyRunning is returned by Start when this supervisor already owns a
// live proxy process.
var ErrAlreadyRunning = errors.New("proxy already running")

const (
	// time for the kernel to release the port after the orphan kill
	portReleaseWait = 300 * time.Millisecond
	portProbeWait   = 250 * time.Millisecond
	stopGrace       = 3 * time.Second
	syncEvery       = 500 * time.Millisecond
	syncTimeout     = 15 * time.Second
)

// settingsAPI is the slice of the management client the supervisor mirrors
// runtime switches through once the proxy answers.
type settingsAPI interface {
	SetUsageStatisticsEnabled(ctx context.Context, enabled bool) error
	SetForceModelMappings(ctx context.Context, enabled bool) error
}

// Status reports the supervised process.
type Status struct {
	Running  bool   `json:"running"`
	Port     int    `json:"port"`
	Endpoint string `json:"endpoint"`
	PID      int    `json:"pid,omitempty"`
}

// Supervisor owns the proxy child process for one serve session.
type Supervisor struct {
	cfg  *config.Config
	mgmt settingsAPI
	log  *zap.Logger

	// OnLine, when set before Start, receives every output line the proxy
	// writes. The serve loop points it at the request parser when file
	// logging is off.
	OnLine func(line string)

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// New makes a Supervisor for the configured proxy.
func New(cfg *config.Config, mgmt settingsAPI, log *zap.Logger) *Supervisor {
	return &Supervisor{cfg: cfg, mgmt: mgmt, log: log}
}

// Status reports whether this supervisor currently owns a proxy process.
// Other processes answering on the port are the gateway probe's business.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Port:     s.cfg.Port,
		Endpoint: s.cfg.Endpoint(),
	}
	if s.cmd != nil && s.cmd.Process != nil {
		st.Running = true
		st.PID = s.cmd.Process.Pid
	}
	return st
}

// Done returns a channel closed when the current proxy process exits, or nil
// when nothing is running.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Start renders the proxy configuration, clears the port of orphans from
// earlier runs, and spawns the proxy binary with it.
func (s *Supervisor) Start(ctx context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return s.status(), ErrAlreadyRunning
	}

	_ = KillPort(s.cfg.Port, s.log) // portBusy below catches survivors
	time.Sleep(portReleaseWait)
	if portBusy(s.cfg.Port) {
		return s.status(), fmt.Errorf("port %d is still in use; stop whatever owns it first", s.cfg.Port)
	}

	path, err := proxyconfig.Write(s.cfg)
	if err != nil {
		return s.status(), err
	}

	bin, args, err := s.command()
	if err != nil {
		return s.status(), err
	}
	args = append(args, "--config", path)

	cmd := exec.Command(bin, args...)
	// keep the proxy's own logs out of the working directory
	cmd.Env = append(os.Environ(), "WRITABLE_PATH="+s.cfg.Dir())
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.status(), fmt.Errorf("could not pipe proxy output: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return s.status(), fmt.Errorf("could not pipe proxy output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return s.status(), fmt.Errorf("could not start %s: %w", bin, err)
	}

	done := make(chan struct{})
	s.cmd, s.done = cmd, done

	go s.scan(stdout, zap.DebugLevel)
	go s.scan(stderr, zap.WarnLevel)
	go s.reap(cmd, done)
	go s.pushSettings(ctx)

	s.log.Info("proxy started",
		zap.String("bin", bin),
		zap.Int("port", s.cfg.Port),
		zap.Int("pid", cmd.Process.Pid))
	return s.status(), nil
}

// Stop terminates the owned proxy process, escalating to a hard kill after a
// short grace. Stopping an already stopped supervisor is a no-op.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	cmd, done := s.cmd, s.done
	s.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	terminate(cmd.Process)
	select {
	case <-done:
	case <-time.After(stopGrace):
		s.log.Warn("proxy ignored the termination signal, killing it")
		_ = cmd.Process.Kill()
		<-done
	}
	return nil
}

// status is Status for callers already holding the lock.
func (s *Supervisor) status() Status {
	st := Status{Port: s.cfg.Port, Endpoint: s.cfg.Endpoint()}
	if s.cmd != nil && s.cmd.Process != nil {
		st.Running = true
		st.PID = s.cmd.Process.Pid
	}
	return st
}

func (s *Supervisor) command() (string, []string, error) {
	return ResolveCommand(s.cfg)
}

// ResolveCommand resolves how the proxy is launched: the configured override
// first, then PATH, then the usual install locations.
func ResolveCommand(cfg *config.Config) (string, []string, error) {
	if cfg.SidecarCommand != "" {
		words, err := shellwords.Parse(cfg.SidecarCommand)
		if err != nil {
			return "", nil, fmt.Errorf("could not parse sidecar command %q: %w", cfg.SidecarCommand, err)
		}
		if len(words) == 0 {
			return "", nil, errors.New("sidecar command is empty")
		}
		return words[0], words[1:], nil
	}

	bin := ordered.First(
		lookPath("cliproxyapi"),
		lookPath("cli-proxy-api"),
		installedBinary(),
	)
	if bin == "" {
		return "", nil, fmt.Errorf(
			"cliproxyapi binary not found; install it from https://github.com/router-for-me/CLIProxyAPI or set sidecarCommand in %s",
			cfg.SettingsPath)
	}
	return bin, nil, nil
}

func lookPath(name string) string {
	p, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return p
}

func installedBinary() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	for _, p := range installCandidates(home, runtime.GOOS) {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// installCandidates lists where the proxy's installers put the binary when
// it is not on PATH.
func installCandidates(home, goos string) []string {
	if goos == "windows" {
		return []string{
			filepath.Join(home, "AppData", "Local", "Programs", "cliproxyapi", "cliproxyapi.exe"),
			filepath.Join(home, "AppData", "Local", "Programs", "cli-proxy-api", "cli-proxy-api.exe"),
		}
	}
	var out []string
	for _, dir := range []string{
		filepath.Join(home, ".local", "bin"),
		"/usr/local/bin",
		"/opt/homebrew/bin",
	} {
		out = append(out,
			filepath.Join(dir, "cliproxyapi"),
			filepath.Join(dir, "cli-proxy-api"),
		)
	}
	return out
}

func (s *Supervisor) scan(r io.Reader, level zapcore.Level) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if ce := s.log.Check(level, "cliproxyapi"); ce != nil {
			ce.Write(zap.String("output", line))
		}
		if s.OnLine != nil {
			s.OnLine(line)
		}
	}
}

// reap waits the child out and resets the supervisor when it was still the
// tracked process.
func (s *Supervisor) reap(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	s.mu.Lock()
	if s.cmd == cmd {
		s.cmd, s.done = nil, nil
	}
	s.mu.Unlock()
	close(done)

	if err != nil {
		s.log.Warn("proxy exited", zap.Error(err))
		return
	}
	s.log.Info("proxy exited")
}

// pushSettings mirrors the runtime switches the YAML cannot carry once the
// management plane answers. The proxy needs a moment to bind, so failures
// just mean "not yet".
func (s *Supervisor) pushSettings(ctx context.Context) {
	if s.mgmt == nil {
		return
	}
	deadline := time.Now().Add(syncTimeout)
	for {
		if err := s.mgmt.SetUsageStatisticsEnabled(ctx, s.cfg.UsageStatsEnabled); err == nil {
			if err := s.mgmt.SetForceModelMappings(ctx, s.cfg.ForceModelMappings); err != nil {
				s.log.Warn("could not sync force-model-mappings", zap.Error(err))
			}
			s.log.Debug("runtime settings synced")
			return
		}
		if time.Now().After(deadline) {
			s.log.Warn("proxy management API never answered, settings not synced")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(syncEvery):
		}
	}
}

func terminate(p *os.Process) {
	if runtime.GOOS == "windows" {
		_ = p.Kill()
		return
	}
	_ = p.Signal(syscall.SIGTERM)
}

func portBusy(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), portProbeWait)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
