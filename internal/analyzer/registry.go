package analyzer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/opencode-ai/lintwatch/internal/config"
)

// DefaultPattern matches the jshint reporter line format
// `<file>: line <N>, col <M>, <message>`. ESLint's compact formatter
// prints the same shape.
const DefaultPattern = `(.*):\s+line\s+(\d+),\s+col (\d+),\s+(.*)`

var defaultRegexp = regexp.MustCompile(DefaultPattern)

// Definition describes a built-in analyzer.
type Definition struct {
	Name           string
	Extensions     []string
	Command        []string // command and leading args; the document path is appended
	Pattern        string
	InstallPackage string // npm package name
}

// BuiltinAnalyzers is the registry of known analysis tools.
var BuiltinAnalyzers = []Definition{
	{
		Name:           "jshint",
		Extensions:     []string{".js"},
		Command:        []string{"jshint"},
		Pattern:        DefaultPattern,
		InstallPackage: "jshint",
	},
	{
		Name:           "eslint",
		Extensions:     []string{".js", ".jsx", ".mjs", ".cjs"},
		Command:        []string{"eslint", "--format", "compact"},
		Pattern:        DefaultPattern,
		InstallPackage: "eslint @eslint/compat eslint-formatter-compact",
	},
}

// Resolved is the final analyzer config after merging registry + user config.
type Resolved struct {
	Name           string
	Command        []string
	Extensions     []string
	Pattern        *regexp.Regexp
	InstallDir     string
	Timeout        time.Duration
	InstallPackage string
}

func builtinByName() map[string]Definition {
	m := make(map[string]Definition, len(BuiltinAnalyzers))
	for _, def := range BuiltinAnalyzers {
		m[def.Name] = def
	}
	return m
}

// Resolve merges the configured analyzer over its built-in definition. An
// unknown name is accepted when the config supplies a command.
func Resolve(cfg config.AnalyzerConfig) (Resolved, error) {
	r := Resolved{
		Name:       cfg.Name,
		InstallDir: cfg.InstallDir,
		Timeout:    cfg.TimeoutDuration(),
	}

	pattern := DefaultPattern
	if def, ok := builtinByName()[cfg.Name]; ok {
		r.Command = def.Command
		r.Extensions = def.Extensions
		r.InstallPackage = def.InstallPackage
		pattern = def.Pattern
	}

	if cfg.Command != "" {
		r.Command = append([]string{cfg.Command}, cfg.Args...)
	} else if len(cfg.Args) > 0 && len(r.Command) > 0 {
		r.Command = append(append([]string{}, r.Command...), cfg.Args...)
	}
	if len(r.Command) == 0 {
		return Resolved{}, fmt.Errorf("%w: %q has no command configured", ErrUnknownAnalyzer, cfg.Name)
	}

	exts := r.Extensions
	if len(cfg.Extensions) > 0 {
		exts = cfg.Extensions
	}
	if len(exts) == 0 {
		exts = []string{".js"}
	}
	r.Extensions = make([]string, 0, len(exts))
	for _, ext := range exts {
		r.Extensions = append(r.Extensions, strings.ToLower(ext))
	}

	if cfg.Pattern != "" {
		pattern = cfg.Pattern
	}
	if pattern == DefaultPattern {
		r.Pattern = defaultRegexp
	} else {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Resolved{}, fmt.Errorf("invalid pattern for %s: %w", r.Name, err)
		}
		if re.NumSubexp() < 4 {
			return Resolved{}, fmt.Errorf("pattern for %s needs 4 groups (file, line, column, message), has %d", r.Name, re.NumSubexp())
		}
		r.Pattern = re
	}

	if r.Timeout <= 0 {
		r.Timeout = config.DefaultTimeout * time.Second
	}

	return r, nil
}
