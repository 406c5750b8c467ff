// Package analyzer runs the external static-analysis tool against a saved
// document and turns its textual report into a diagnostic.Outcome.
package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/opencode-ai/lintwatch/internal/diagnostic"
	"github.com/opencode-ai/lintwatch/internal/logging"
)

// toolSettings is resolved once per process and never changes afterwards.
type toolSettings struct {
	path string
	args []string
}

// Invoker runs one analyzer. It is safe for concurrent use.
type Invoker struct {
	def      Resolved
	once     sync.Once
	settings toolSettings
}

func NewInvoker(def Resolved) *Invoker {
	return &Invoker{def: def}
}

// Name returns the analyzer name.
func (i *Invoker) Name() string {
	return i.def.Name
}

// Supports reports whether path has one of the analyzer's extensions.
func (i *Invoker) Supports(path string) bool {
	return slices.Contains(i.def.Extensions, strings.ToLower(filepath.Ext(path)))
}

func (i *Invoker) toolSettings() toolSettings {
	i.once.Do(func() {
		path, args, err := ResolveCommand(i.def)
		if err != nil {
			// Fall back to the bare command so the failure surfaces as a
			// tool error on every run rather than once at startup.
			logging.Warn("analyzer binary not resolved", "name", i.def.Name, "error", err)
			i.settings = toolSettings{path: i.def.Command[0], args: i.def.Command[1:]}
			return
		}
		logging.Info("analyzer resolved", "name", i.def.Name, "path", path)
		i.settings = toolSettings{path: path, args: args}
	})
	return i.settings
}

// Analyze runs the tool against path and blocks until it exits.
func (i *Invoker) Analyze(ctx context.Context, path string) diagnostic.Outcome {
	if !i.Supports(path) {
		logging.Debug("analysis skipped, unsupported extension", "path", path)
		return diagnostic.Skipped()
	}

	s := i.toolSettings()

	runCtx, cancel := context.WithTimeout(ctx, i.def.Timeout)
	defer cancel()

	args := append(append([]string{}, s.args...), path)
	cmd := exec.CommandContext(runCtx, s.path, args...)
	cmd.Dir = i.def.InstallDir
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	logging.Debug("analyzer started", "name", i.def.Name, "path", path, "dir", cmd.Dir)
	err := cmd.Run()
	duration := time.Since(started)

	exitCode := 0
	if err != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			logging.Warn("analyzer timed out", "name", i.def.Name, "path", path, "timeout", i.def.Timeout)
			return diagnostic.Failed(fmt.Sprintf("%s timed out after %s", i.def.Name, i.def.Timeout))
		case ctx.Err() != nil:
			return diagnostic.Failed(fmt.Sprintf("%s canceled: %v", i.def.Name, ctx.Err()))
		}

		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			logging.Warn("analyzer failed to start", "name", i.def.Name, "path", path, "error", err)
			return diagnostic.Failed(fmt.Sprintf("failed to run %s: %v", i.def.Name, err))
		}
		// Linters exit non-zero when they report findings.
		exitCode = exitErr.ExitCode()
	}

	logging.Debug("analyzer finished",
		"name", i.def.Name,
		"path", path,
		"exit_code", exitCode,
		"stdout_len", stdout.Len(),
		"stderr_len", stderr.Len(),
		"duration", duration,
	)

	if stderr.Len() > 0 {
		return diagnostic.Failed(stderr.String())
	}

	return diagnostic.Succeeded(Parse(stdout.String(), i.def.Pattern))
}
