package sidecar

import (
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"
)

// KillPort force-kills whatever listens on port. Start uses it to clear
// orphaned proxies from a previous run, and `proxypal stop` uses it when no
// supervisor owns the process. On unix nothing-listening exits zero, so a
// returned error means the kill pipeline itself broke.
func KillPort(port int, log *zap.Logger) error {
	bin, args := killPortCommand(port, runtime.GOOS)
	out, err := exec.Command(bin, args...).CombinedOutput()
	if err != nil {
		if log != nil {
			log.Debug("port kill", zap.Int("port", port), zap.Error(err), zap.ByteString("output", out))
		}
		return fmt.Errorf("could not kill listeners on port %d: %w", port, err)
	}
	return nil
}

func killPortCommand(port int, goos string) (string, []string) {
	if goos == "windows" {
		script := fmt.Sprintf(
			`for /f "tokens=5" %%a in ('netstat -aon ^| findstr :%d ^| findstr LISTENING') do taskkill /F /PID %%a`,
			port)
		return "cmd", []string{"/C", script}
	}
	return "sh", []string{"-c", fmt.Sprintf("lsof -ti :%d | xargs -r kill -9", port)}
}
