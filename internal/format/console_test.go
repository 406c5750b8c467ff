package format

import (
	"bytes"
	"testing"

	"github.com/opencode-ai/lintwatch/internal/diagnostic"
	"github.com/opencode-ai/lintwatch/internal/ledger"
	"github.com/stretchr/testify/assert"
)

func TestConsolePrintsCurrentSet(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsole(&buf)
	l := ledger.New(console, "jshint")

	l.Publish("/src/app.js", []diagnostic.Record{
		{File: "/src/app.js", Line: 3, Column: 10, Message: "Missing semicolon."},
		{File: "/src/app.js", Line: 1, Column: 1, Message: "Unused variable."},
	}, nil)
	assert.Equal(t, "/src/app.js 2 problem(s)\n  3:10  jshint  Missing semicolon.\n  1:1  jshint  Unused variable.\n", buf.String())

	buf.Reset()
	l.Publish("/src/app.js", nil, nil)
	assert.Equal(t, "/src/app.js ok\n", buf.String())
}

func TestConsoleMarksClearedFiles(t *testing.T) {
	var buf bytes.Buffer
	l := ledger.New(NewConsole(&buf), "jshint")

	l.Publish("/src/app.js", []diagnostic.Record{{File: "/src/app.js", Line: 1, Column: 1, Message: "x"}}, nil)
	buf.Reset()

	l.Clear("/src/app.js")
	assert.Equal(t, "/src/app.js closed\n", buf.String())
	assert.NotContains(t, buf.String(), "ok")
}

func TestConsoleReportsToolError(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).ReportToolError("/src/app.js", "jshint: not found")
	assert.Equal(t, "/src/app.js error\n  jshint: not found\n", buf.String())
}
