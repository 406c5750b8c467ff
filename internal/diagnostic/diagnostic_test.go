package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomePredicates(t *testing.T) {
	rec := Record{File: "foo.js", Line: 3, Column: 10, Message: "Missing semicolon."}

	tests := []struct {
		name    string
		outcome Outcome
		isError bool
		skipped bool
		fail    bool
		pass    bool
	}{
		{name: "tool error", outcome: Failed("jshint: not found"), isError: true},
		{name: "skipped", outcome: Skipped(), skipped: true},
		{name: "clean", outcome: Succeeded(nil), pass: true},
		{name: "findings", outcome: Succeeded([]Record{rec}), fail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isError, tt.outcome.IsError())
			assert.Equal(t, tt.skipped, tt.outcome.IsSkipped())
			assert.Equal(t, tt.fail, tt.outcome.IsFail())
			assert.Equal(t, tt.pass, tt.outcome.IsPass())
		})
	}
}

func TestFailedCarriesNoDiagnostics(t *testing.T) {
	o := Failed("boom")
	assert.Empty(t, o.Diagnostics)
	assert.Equal(t, "boom", o.ToolError)
}

func TestSucceededNormalizesNil(t *testing.T) {
	o := Succeeded(nil)
	assert.NotNil(t, o.Diagnostics)
	assert.Empty(t, o.ToolError)
}

func TestRecordString(t *testing.T) {
	r := Record{File: "foo.js", Line: 3, Column: 10, Message: "Missing semicolon."}
	assert.Equal(t, "foo.js:3:10: Missing semicolon.", r.String())
}
