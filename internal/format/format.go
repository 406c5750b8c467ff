package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/opencode-ai/lintwatch/internal/app"
	"github.com/opencode-ai/lintwatch/internal/diagnostic"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format of the check command
type OutputFormat string

const (
	// Text format prints one line per diagnostic followed by a summary.
	Text OutputFormat = "text"

	// JSON format prints the full report as a JSON object.
	JSON OutputFormat = "json"

	// YAML format prints the full report as a YAML document.
	YAML OutputFormat = "yaml"
)

// DefaultMaxPerFile caps how many diagnostics the text format prints for
// one file.
const DefaultMaxPerFile = 50

// String returns the string representation of the OutputFormat
func (f OutputFormat) String() string {
	return string(f)
}

// SupportedFormats is a list of all supported output formats as strings
var SupportedFormats = []string{
	string(Text),
	string(JSON),
	string(YAML),
}

// Parse converts a string to an OutputFormat
func Parse(s string) (OutputFormat, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case string(Text):
		return Text, nil
	case string(JSON):
		return JSON, nil
	case string(YAML), "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("invalid format: %s", s)
	}
}

// IsValid checks if the provided format string is supported
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// GetHelpText returns a formatted string describing all supported formats
func GetHelpText() string {
	return fmt.Sprintf(`Supported output formats:
- %s: One line per diagnostic and a summary (default)
- %s: Full report as a JSON object
- %s: Full report as a YAML document`,
		Text, JSON, YAML)
}

// Summary counts check results by outcome.
type Summary struct {
	Files       int `json:"files" yaml:"files"`
	Passed      int `json:"passed" yaml:"passed"`
	Failed      int `json:"failed" yaml:"failed"`
	Skipped     int `json:"skipped" yaml:"skipped"`
	Errors      int `json:"errors" yaml:"errors"`
	Diagnostics int `json:"diagnostics" yaml:"diagnostics"`
}

// Clean reports whether every analyzed file passed.
func (s Summary) Clean() bool {
	return s.Failed == 0 && s.Errors == 0
}

func Summarize(results []app.CheckResult) Summary {
	s := Summary{Files: len(results)}
	for _, r := range results {
		switch {
		case r.Outcome.IsError():
			s.Errors++
		case r.Outcome.IsSkipped():
			s.Skipped++
		case r.Outcome.IsFail():
			s.Failed++
			s.Diagnostics += len(r.Outcome.Diagnostics)
		default:
			s.Passed++
		}
	}
	return s
}

type fileReport struct {
	Path        string              `json:"path" yaml:"path"`
	Status      string              `json:"status" yaml:"status"`
	Error       string              `json:"error,omitempty" yaml:"error,omitempty"`
	Diagnostics []diagnostic.Record `json:"diagnostics" yaml:"diagnostics"`
}

type report struct {
	Analyzer string       `json:"analyzer" yaml:"analyzer"`
	Files    []fileReport `json:"files" yaml:"files"`
	Summary  Summary      `json:"summary" yaml:"summary"`
}

func status(o diagnostic.Outcome) string {
	switch {
	case o.IsError():
		return "error"
	case o.IsSkipped():
		return "skipped"
	case o.IsFail():
		return "fail"
	default:
		return "pass"
	}
}

func buildReport(analyzer string, results []app.CheckResult) report {
	files := make([]fileReport, 0, len(results))
	for _, r := range results {
		diags := r.Outcome.Diagnostics
		if diags == nil {
			diags = []diagnostic.Record{}
		}
		files = append(files, fileReport{
			Path:        r.Path,
			Status:      status(r.Outcome),
			Error:       r.Outcome.ToolError,
			Diagnostics: diags,
		})
	}
	return report{Analyzer: analyzer, Files: files, Summary: Summarize(results)}
}

var (
	pathColor    = color.New(color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
	passColor    = color.New(color.FgGreen)
	skippedColor = color.New(color.Faint)
)

// Write renders the check results for analyzer in format f.
func Write(w io.Writer, f OutputFormat, analyzer string, results []app.CheckResult, maxPerFile int) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(buildReport(analyzer, results))
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(buildReport(analyzer, results)); err != nil {
			return err
		}
		return enc.Close()
	case Text, "":
		return writeText(w, analyzer, results, maxPerFile)
	default:
		return fmt.Errorf("unsupported format: %s", f)
	}
}

func writeText(w io.Writer, analyzer string, results []app.CheckResult, maxPerFile int) error {
	if maxPerFile <= 0 {
		maxPerFile = DefaultMaxPerFile
	}

	var b strings.Builder
	for _, r := range results {
		switch {
		case r.Outcome.IsError():
			fmt.Fprintf(&b, "%s %s\n", pathColor.Sprint(r.Path), errorColor.Sprint("error"))
			fmt.Fprintf(&b, "  %s: %s\n", analyzer, r.Outcome.ToolError)
		case r.Outcome.IsSkipped():
			fmt.Fprintf(&b, "%s %s\n", pathColor.Sprint(r.Path), skippedColor.Sprint("skipped"))
		case r.Outcome.IsPass():
			fmt.Fprintf(&b, "%s %s\n", pathColor.Sprint(r.Path), passColor.Sprint("ok"))
		default:
			fmt.Fprintf(&b, "%s %s\n", pathColor.Sprint(r.Path), warnColor.Sprintf("%d problem(s)", len(r.Outcome.Diagnostics)))
			diags := r.Outcome.Diagnostics
			shown := diags
			if len(shown) > maxPerFile {
				shown = shown[:maxPerFile]
			}
			for _, d := range shown {
				fmt.Fprintf(&b, "  %d:%d  %s  %s\n", d.Line, d.Column, warnColor.Sprint("warning"), d.Message)
			}
			if len(diags) > len(shown) {
				fmt.Fprintf(&b, "  ... and %d more diagnostics\n", len(diags)-len(shown))
			}
		}
	}

	s := Summarize(results)
	b.WriteString("\n")
	b.WriteString(summaryLine(s))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func summaryLine(s Summary) string {
	parts := []string{fmt.Sprintf("%d file(s)", s.Files)}
	if s.Diagnostics > 0 {
		parts = append(parts, warnColor.Sprintf("%d problem(s) in %d file(s)", s.Diagnostics, s.Failed))
	}
	if s.Errors > 0 {
		parts = append(parts, errorColor.Sprintf("%d tool error(s)", s.Errors))
	}
	if s.Skipped > 0 {
		parts = append(parts, skippedColor.Sprintf("%d skipped", s.Skipped))
	}
	if s.Clean() {
		parts = append(parts, passColor.Sprint("clean"))
	}
	return strings.Join(parts, ", ")
}
