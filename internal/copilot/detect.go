package copilot

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

// Detection is what a copilot-api scan found on this machine.
type Detection struct {
	NodeBin    string // node interpreter, empty when missing
	NPXBin     string // npx next to node, runs copilot-api when not installed
	NPMBin     string // npm next to node, used by Install
	CopilotBin string // globally installed copilot-api, if any
	Version    string // node version, as reported by node itself

	NodeAvailable bool
	Installed     bool

	// CheckedNodePaths lists everywhere node was looked for, for error
	// messages when nothing was found.
	CheckedNodePaths []string
}

// Detect scans for Node.js and copilot-api. Version managers are checked
// before system locations since their node is usually the one the user
// actually maintains, with PATH as the final fallback.
func Detect(ctx context.Context, home string) Detection {
	var det Detection

	for _, candidate := range nodeCandidates(home, runtime.GOOS) {
		det.CheckedNodePaths = append(det.CheckedNodePaths, candidate)
		if isExecutable(candidate) {
			det.NodeBin = candidate
			break
		}
	}
	if det.NodeBin == "" {
		det.CheckedNodePaths = append(det.CheckedNodePaths, "PATH")
		if p, err := exec.LookPath("node"); err == nil {
			det.NodeBin = p
		}
	}
	if det.NodeBin == "" {
		return det
	}
	det.NodeAvailable = true

	if out, err := exec.CommandContext(ctx, det.NodeBin, "--version").Output(); err == nil {
		det.Version = strings.TrimSpace(string(out))
	}

	det.NPXBin = siblingTool(det.NodeBin, "npx")
	det.NPMBin = siblingTool(det.NodeBin, "npm")
	det.CopilotBin = siblingTool(det.NodeBin, "copilot-api")
	if det.CopilotBin == "" {
		if p, err := exec.LookPath("copilot-api"); err == nil {
			det.CopilotBin = p
		}
	}
	det.Installed = det.CopilotBin != ""
	return det
}

// command is how to launch copilot-api: the global install when present,
// otherwise npx fetching the published package.
func (d Detection) command() (string, []string) {
	if d.Installed && d.CopilotBin != "" {
		return d.CopilotBin, nil
	}
	if d.NPXBin == "" {
		return "", nil
	}
	return d.NPXBin, []string{"--yes", "copilot-api@latest"}
}

// nodeCandidates returns absolute node paths to probe, in preference order.
func nodeCandidates(home, goos string) []string {
	if goos == "windows" {
		out := []string{
			filepath.Join(home, "AppData", "Local", "Volta", "bin", "node.exe"),
		}
		if p := newestVersionDir(filepath.Join(home, "AppData", "Roaming", "nvm"), "node.exe"); p != "" {
			out = append(out, p)
		}
		out = append(out, `C:\Program Files\nodejs\node.exe`)
		return out
	}

	out := []string{
		filepath.Join(home, ".volta", "bin", "node"),
		filepath.Join(home, ".asdf", "shims", "node"),
	}
	if p := newestVersionDir(filepath.Join(home, ".nvm", "versions", "node"), filepath.Join("bin", "node")); p != "" {
		out = append(out, p)
	}
	for _, fnmRoot := range []string{
		filepath.Join(home, ".local", "share", "fnm", "node-versions"),
		filepath.Join(home, "Library", "Application Support", "fnm", "node-versions"),
	} {
		if p := newestVersionDir(fnmRoot, filepath.Join("installation", "bin", "node")); p != "" {
			out = append(out, p)
		}
	}
	out = append(out,
		"/opt/homebrew/bin/node",
		"/usr/local/bin/node",
		"/usr/bin/node",
	)
	return out
}

// newestVersionDir scans root for version-named directories (v22.1.0 style)
// and returns the suffix path under the newest one that exists.
func newestVersionDir(root, suffix string) string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "v") {
			versions = append(versions, e.Name())
		}
	}
	if len(versions) == 0 {
		return ""
	}
	sort.Slice(versions, func(i, j int) bool {
		return compareVersions(versions[i], versions[j]) > 0
	})
	for _, v := range versions {
		p := filepath.Join(root, v, suffix)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// compareVersions orders v-prefixed dotted versions numerically, so v10
// beats v9. Unparseable segments compare as zero.
func compareVersions(a, b string) int {
	as := strings.Split(strings.TrimPrefix(a, "v"), ".")
	bs := strings.Split(strings.TrimPrefix(b, "v"), ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var an, bn int
		if i < len(as) {
			an, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bn, _ = strconv.Atoi(bs[i])
		}
		if an != bn {
			if an > bn {
				return 1
			}
			return -1
		}
	}
	return 0
}

// siblingTool finds a tool installed next to node, which is where npm puts
// global binaries for version-managed installs.
func siblingTool(nodeBin, name string) string {
	dir := filepath.Dir(nodeBin)
	names := []string{name}
	if runtime.GOOS == "windows" {
		names = []string{name + ".cmd", name + ".exe"}
	}
	for _, n := range names {
		p := filepath.Join(dir, n)
		if isExecutable(p) {
			return p
		}
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return ""
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}
