package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/opencode-ai/lintwatch/internal/diagnostic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool writes an executable shell script into dir and returns a
// Resolved pointing at it.
func fakeTool(t *testing.T, dir, script string) Resolved {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script analyzers are not supported on windows")
	}

	path := filepath.Join(dir, "fakelint")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))

	return Resolved{
		Name:       "fakelint",
		Command:    []string{path},
		Extensions: []string{".js"},
		Pattern:    defaultRegexp,
		InstallDir: dir,
		Timeout:    5 * time.Second,
	}
}

func TestInvoker_ParsesStdout(t *testing.T) {
	dir := t.TempDir()
	def := fakeTool(t, dir, `printf '%s: line 3, col 10, Missing semicolon.\nDone.\n' "$1"
exit 2
`)

	out := NewInvoker(def).Analyze(context.Background(), "/src/foo.js")

	require.False(t, out.IsError(), out.ToolError)
	assert.Equal(t, []diagnostic.Record{
		{File: "/src/foo.js", Line: 3, Column: 10, Message: "Missing semicolon."},
	}, out.Diagnostics)
}

func TestInvoker_CleanRun(t *testing.T) {
	dir := t.TempDir()
	def := fakeTool(t, dir, "exit 0\n")

	out := NewInvoker(def).Analyze(context.Background(), "/src/clean.js")

	assert.True(t, out.IsPass())
	assert.NotNil(t, out.Diagnostics)
}

func TestInvoker_StderrIsToolError(t *testing.T) {
	dir := t.TempDir()
	def := fakeTool(t, dir, `echo "$1: line 1, col 1, still parsed"
echo "config file is broken" 1>&2
`)

	out := NewInvoker(def).Analyze(context.Background(), "/src/foo.js")

	require.True(t, out.IsError())
	assert.Equal(t, "config file is broken\n", out.ToolError)
	assert.Empty(t, out.Diagnostics)
}

func TestInvoker_RunsInInstallDir(t *testing.T) {
	dir := t.TempDir()
	def := fakeTool(t, dir, "pwd > cwd.txt\n")

	out := NewInvoker(def).Analyze(context.Background(), "/src/foo.js")
	require.True(t, out.IsPass(), out.ToolError)

	data, err := os.ReadFile(filepath.Join(dir, "cwd.txt"))
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(string(data[:len(data)-1]))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInvoker_SkipsUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	def := fakeTool(t, dir, "touch ran.txt\n")

	out := NewInvoker(def).Analyze(context.Background(), "/src/notes.txt")

	assert.True(t, out.IsSkipped())
	assert.Empty(t, out.Diagnostics)
	assert.NoFileExists(t, filepath.Join(dir, "ran.txt"))
}

func TestInvoker_ExtensionIsCaseInsensitive(t *testing.T) {
	inv := NewInvoker(Resolved{Extensions: []string{".js"}})
	assert.True(t, inv.Supports("/src/APP.JS"))
	assert.False(t, inv.Supports("/src/app.ts"))
	assert.False(t, inv.Supports("/src/Makefile"))
}

func TestInvoker_MissingBinaryIsToolError(t *testing.T) {
	def := Resolved{
		Name:       "ghostlint",
		Command:    []string{"lintwatch-definitely-not-installed"},
		Extensions: []string{".js"},
		Pattern:    defaultRegexp,
		InstallDir: t.TempDir(),
		Timeout:    time.Second,
	}

	out := NewInvoker(def).Analyze(context.Background(), "/src/foo.js")

	require.True(t, out.IsError())
	assert.Contains(t, out.ToolError, "ghostlint")
}

func TestInvoker_Timeout(t *testing.T) {
	dir := t.TempDir()
	def := fakeTool(t, dir, "exec sleep 5\n")
	def.Timeout = 100 * time.Millisecond

	out := NewInvoker(def).Analyze(context.Background(), "/src/slow.js")

	require.True(t, out.IsError())
	assert.Contains(t, out.ToolError, "timed out")
}

func TestResolveCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	dir := t.TempDir()

	binDir := filepath.Join(dir, "node_modules", ".bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	npmBin := filepath.Join(binDir, "lintwatch-test-tool")
	require.NoError(t, os.WriteFile(npmBin, []byte("#!/bin/sh\n"), 0o755))

	path, args, err := ResolveCommand(Resolved{
		Name:       "test",
		Command:    []string{"lintwatch-test-tool", "--flag"},
		InstallDir: dir,
	})
	require.NoError(t, err)
	assert.Equal(t, npmBin, path)
	assert.Equal(t, []string{"--flag"}, args)

	// a binary directly in the install dir wins over node_modules
	local := filepath.Join(dir, "lintwatch-test-tool")
	require.NoError(t, os.WriteFile(local, []byte("#!/bin/sh\n"), 0o755))
	path, _, err = ResolveCommand(Resolved{Name: "test", Command: []string{"lintwatch-test-tool"}, InstallDir: dir})
	require.NoError(t, err)
	assert.Equal(t, local, path)

	_, _, err = ResolveCommand(Resolved{Name: "test", Command: []string{"/does/not/exist"}})
	assert.ErrorIs(t, err, ErrToolNotFound)

	_, _, err = ResolveCommand(Resolved{Name: "test", Command: []string{"lintwatch-missing-tool"}, InstallDir: dir})
	assert.ErrorIs(t, err, ErrToolNotFound)
}
