package analyzer

import (
	"regexp"
	"testing"

	"github.com/opencode-ai/lintwatch/internal/diagnostic"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []diagnostic.Record
	}{
		{
			name:   "single finding with trailer",
			output: "foo.js: line 3, col 10, Missing semicolon.\nDone.\n",
			want: []diagnostic.Record{
				{File: "foo.js", Line: 3, Column: 10, Message: "Missing semicolon."},
			},
		},
		{
			name:   "crlf output keeps order",
			output: "a.js: line 9, col 1, Second.\r\na.js: line 2, col 4, First.\r\n\r\n2 errors\r\n",
			want: []diagnostic.Record{
				{File: "a.js", Line: 9, Column: 1, Message: "Second."},
				{File: "a.js", Line: 2, Column: 4, Message: "First."},
			},
		},
		{
			name:   "windows path",
			output: `C:\src\app.js: line 12, col 5, 'x' is not defined.`,
			want: []diagnostic.Record{
				{File: `C:\src\app.js`, Line: 12, Column: 5, Message: "'x' is not defined."},
			},
		},
		{
			name:   "eslint compact",
			output: "/src/app.js: line 1, col 14, Error - Missing semicolon. (semi)\n\n1 problem\n",
			want: []diagnostic.Record{
				{File: "/src/app.js", Line: 1, Column: 14, Message: "Error - Missing semicolon. (semi)"},
			},
		},
		{
			name:   "nothing matches",
			output: "Done.\n",
			want:   []diagnostic.Record{},
		},
		{
			name:   "empty",
			output: "",
			want:   []diagnostic.Record{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.output, defaultRegexp))
		})
	}
}

func TestParseCustomPattern(t *testing.T) {
	re := regexp.MustCompile(`^(.+):(\d+):(\d+): (.*)$`)
	got := Parse("lib.js:4:2: unused variable\n", re)
	assert.Equal(t, []diagnostic.Record{
		{File: "lib.js", Line: 4, Column: 2, Message: "unused variable"},
	}, got)
}
