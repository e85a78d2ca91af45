package copilot

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Install puts copilot-api on this machine with a global npm install, then
// rescans so the Manager picks the binary up without a restart.
func (m *Manager) Install(ctx context.Context) (Detection, error) {
	det := Detect(ctx, m.home)
	if !det.NodeAvailable {
		return det, errors.New("Node.js is required to install copilot-api; get it from https://nodejs.org/")
	}
	if det.Installed {
		return det, nil
	}
	if det.NPMBin == "" {
		return det, fmt.Errorf("npm not found next to node (%s); reinstall Node.js with npm included", det.NodeBin)
	}

	m.log.Info("installing copilot-api", zap.String("npm", det.NPMBin))
	out, err := exec.CommandContext(ctx, det.NPMBin, "install", "-g", "copilot-api").CombinedOutput()
	if err != nil {
		return det, fmt.Errorf("npm install failed: %w\n%s", err, lastLines(string(out), 10))
	}

	det = Detect(ctx, m.home)
	if !det.Installed {
		return det, errors.New("npm install succeeded but copilot-api did not land on PATH; open a new shell or check your npm prefix")
	}
	return det, nil
}

// lastLines trims command output to its tail for error messages.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
