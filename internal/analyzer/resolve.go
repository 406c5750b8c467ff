package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/opencode-ai/lintwatch/internal/logging"
)

var (
	ErrUnknownAnalyzer = errors.New("unknown analyzer")
	ErrToolNotFound    = errors.New("analyzer binary not found")
)

// ResolveCommand locates the analyzer binary. It checks, in order, an
// absolute configured path, the install directory, PATH and the install
// directory's node_modules/.bin.
func ResolveCommand(r Resolved) (string, []string, error) {
	if len(r.Command) == 0 {
		return "", nil, fmt.Errorf("no command configured for %s", r.Name)
	}

	cmd := r.Command[0]
	args := r.Command[1:]

	// If user provided an absolute path, use it directly
	if filepath.IsAbs(cmd) {
		if _, err := os.Stat(cmd); err == nil {
			return cmd, args, nil
		}
		return "", nil, fmt.Errorf("%w: configured command %s", ErrToolNotFound, cmd)
	}

	if r.InstallDir != "" {
		if local := findExecutable(filepath.Join(r.InstallDir, cmd)); local != "" {
			return local, args, nil
		}
	}

	// Check system PATH
	if path, err := exec.LookPath(cmd); err == nil {
		return path, args, nil
	}

	if r.InstallDir != "" {
		if npmBin := findExecutable(filepath.Join(r.InstallDir, "node_modules", ".bin", cmd)); npmBin != "" {
			return npmBin, args, nil
		}
	}

	return "", nil, fmt.Errorf("%w: %q for %s", ErrToolNotFound, cmd, r.Name)
}

// findExecutable returns path, or path with a Windows launcher suffix, if it
// names a regular file.
func findExecutable(path string) string {
	for _, candidate := range []string{path, path + ".cmd", path + ".exe"} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// Install fetches the analyzer's npm package into the install directory so
// that ResolveCommand finds it under node_modules/.bin.
func Install(ctx context.Context, r Resolved) error {
	if r.InstallPackage == "" {
		return fmt.Errorf("%s has no installable package", r.Name)
	}
	if r.InstallDir == "" {
		return fmt.Errorf("no install directory configured for %s", r.Name)
	}

	npmPath, err := exec.LookPath("npm")
	if err != nil {
		return fmt.Errorf("npm not found in PATH, cannot install %s", r.Name)
	}

	if err := os.MkdirAll(r.InstallDir, 0o755); err != nil {
		return fmt.Errorf("failed to create install directory: %w", err)
	}

	packages := strings.Fields(r.InstallPackage)
	args := append([]string{"install", "--prefix", r.InstallDir}, packages...)

	cmd := exec.CommandContext(ctx, npmPath, args...)
	cmd.Dir = r.InstallDir
	cmd.Env = os.Environ()

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("npm install failed: %w\noutput: %s", err, string(output))
	}

	logging.Info("Installed analyzer via npm", "name", r.Name, "dir", r.InstallDir)
	return nil
}

// ToolVersion asks the resolved binary for its version string.
func ToolVersion(ctx context.Context, binaryPath string) string {
	for _, flag := range []string{"--version", "-v"} {
		cmd := exec.CommandContext(ctx, binaryPath, flag)
		output, err := cmd.Output()
		if err == nil {
			version := strings.TrimSpace(strings.Split(string(output), "\n")[0])
			if version != "" {
				return version
			}
		}
	}
	return ""
}
