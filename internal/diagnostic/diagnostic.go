// Package diagnostic holds the values that flow from the analyzer to the
// ledger: single findings and the outcome of one analysis run.
package diagnostic

import "fmt"

// Record is one finding reported by the analyzer. Line and Column are
// 1-based, exactly as the tool printed them.
type Record struct {
	File    string `json:"file" yaml:"file"`
	Line    int    `json:"line" yaml:"line"`
	Column  int    `json:"column" yaml:"column"`
	Message string `json:"message" yaml:"message"`
}

func (r Record) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", r.File, r.Line, r.Column, r.Message)
}

// Kind tells which variant an Outcome holds.
type Kind int

const (
	// KindDiagnostics is a completed run; the record list may be empty.
	KindDiagnostics Kind = iota
	// KindSkipped means the document was not eligible and the tool never ran.
	KindSkipped
	// KindToolError means the tool could not produce a trustworthy result.
	KindToolError
)

func (k Kind) String() string {
	switch k {
	case KindDiagnostics:
		return "diagnostics"
	case KindSkipped:
		return "skipped"
	case KindToolError:
		return "error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Outcome is the result of analyzing one document: either a tool error or
// an ordered list of records, never both.
type Outcome struct {
	Kind        Kind
	ToolError   string
	Diagnostics []Record
}

// Failed builds a tool-error outcome.
func Failed(message string) Outcome {
	return Outcome{Kind: KindToolError, ToolError: message}
}

// Succeeded builds a completed outcome. A nil slice is normalized to empty.
func Succeeded(records []Record) Outcome {
	if records == nil {
		records = []Record{}
	}
	return Outcome{Kind: KindDiagnostics, Diagnostics: records}
}

// Skipped builds the outcome for a document the analyzer does not handle.
func Skipped() Outcome {
	return Outcome{Kind: KindSkipped, Diagnostics: []Record{}}
}

func (o Outcome) IsError() bool {
	return o.Kind == KindToolError
}

func (o Outcome) IsSkipped() bool {
	return o.Kind == KindSkipped
}

// IsFail reports a completed run that found something.
func (o Outcome) IsFail() bool {
	return o.Kind == KindDiagnostics && len(o.Diagnostics) > 0
}

// IsPass reports a completed run with no findings.
func (o Outcome) IsPass() bool {
	return o.Kind == KindDiagnostics && len(o.Diagnostics) == 0
}
