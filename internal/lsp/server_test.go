package lsp

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/opencode-ai/lintwatch/internal/app"
	"github.com/opencode-ai/lintwatch/internal/diagnostic"
	"github.com/opencode-ai/lintwatch/internal/jsonrpc/jsonrpctest"
	"github.com/opencode-ai/lintwatch/internal/ledger"
	"github.com/opencode-ai/lintwatch/internal/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

type stubAnalyzer func(ctx context.Context, path string) diagnostic.Outcome

func (f stubAnalyzer) Analyze(ctx context.Context, path string) diagnostic.Outcome {
	return f(ctx, path)
}

func newTestServer(t *testing.T, in io.Reader, out io.Writer, analyze stubAnalyzer) (*Server, lifecycle.HostEvents, *ledger.Ledger) {
	t.Helper()
	server := NewServer(in, out, ServerOptions{Name: "lintwatch", Version: "test", Provider: "jshint"})
	l := ledger.New(server.Sink(), "jshint")

	a, err := app.New(context.Background(), app.Options{
		Analyzer:    analyze,
		Diagnostics: l,
		Reporter:    server,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

	return server, lifecycle.NewDocTableEvents(lifecycle.NewTracker(server, a)), l
}

func opened(u uri.URI) *protocol.DidOpenTextDocumentParams {
	return &protocol.DidOpenTextDocumentParams{TextDocument: protocol.TextDocumentItem{
		URI:        protocol.DocumentURI(u),
		LanguageID: "javascript",
		Version:    1,
	}}
}

func saved(u uri.URI) *protocol.DidSaveTextDocumentParams {
	return &protocol.DidSaveTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(u)}}
}

func closed(u uri.URI) *protocol.DidCloseTextDocumentParams {
	return &protocol.DidCloseTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(u)}}
}

func TestPublishDiagnosticsLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.js")
	u := documentURI(path)

	in := jsonrpctest.NewScript(t)
	in.Call(1, protocol.MethodInitialize, map[string]any{"rootUri": documentURI(filepath.Dir(path))})
	in.Notify(protocol.MethodInitialized, map[string]any{})
	in.Notify(protocol.MethodTextDocumentDidOpen, opened(u))
	in.Notify(protocol.MethodTextDocumentDidSave, saved(u))
	in.Notify(protocol.MethodTextDocumentDidClose, closed(u))
	in.Call(2, protocol.MethodShutdown, nil)
	in.Notify(protocol.MethodExit, nil)

	var out bytes.Buffer
	server, events, l := newTestServer(t, in.Reader(), &out, func(_ context.Context, p string) diagnostic.Outcome {
		return diagnostic.Succeeded([]diagnostic.Record{
			{File: p, Line: 2, Column: 3, Message: "Missing semicolon."},
			{File: p, Line: 1, Column: 1, Message: "Use the function form of \"use strict\"."},
		})
	})

	require.ErrorIs(t, server.Run(context.Background(), events), ErrExit)
	assert.Equal(t, filepath.Dir(path), server.WorkspaceRoot())

	msgs := jsonrpctest.Messages(t, &out)
	require.Equal(t, []string{
		"response",
		protocol.MethodTextDocumentPublishDiagnostics,
		protocol.MethodTextDocumentPublishDiagnostics,
		"response",
	}, jsonrpctest.Methods(msgs))

	var init protocol.InitializeResult
	jsonrpctest.Result(t, msgs[0], &init)
	require.NotNil(t, init.ServerInfo)
	assert.Equal(t, "lintwatch", init.ServerInfo.Name)

	var published protocol.PublishDiagnosticsParams
	jsonrpctest.Params(t, msgs[1], &published)
	assert.Equal(t, string(u), string(published.URI))
	require.Len(t, published.Diagnostics, 2)
	assert.Equal(t, protocol.Position{Line: 1, Character: 2}, published.Diagnostics[0].Range.Start)
	assert.Equal(t, "Missing semicolon.", published.Diagnostics[0].Message)
	assert.Equal(t, "jshint", published.Diagnostics[0].Source)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, published.Diagnostics[0].Severity)
	assert.Equal(t, protocol.Position{Line: 0, Character: 0}, published.Diagnostics[1].Range.Start)

	// close publishes an empty set
	var cleared protocol.PublishDiagnosticsParams
	jsonrpctest.Params(t, msgs[2], &cleared)
	assert.Equal(t, string(u), string(cleared.URI))
	assert.NotNil(t, cleared.Diagnostics)
	assert.Empty(t, cleared.Diagnostics)

	assert.Empty(t, l.Paths())
}

func TestShutdownClearsOpenDocuments(t *testing.T) {
	u := documentURI(filepath.Join(t.TempDir(), "app.js"))

	in := jsonrpctest.NewScript(t)
	in.Notify(protocol.MethodTextDocumentDidOpen, opened(u))
	in.Notify(protocol.MethodTextDocumentDidSave, saved(u))
	in.Call(1, protocol.MethodShutdown, nil)

	var out bytes.Buffer
	server, events, l := newTestServer(t, in.Reader(), &out, func(_ context.Context, p string) diagnostic.Outcome {
		return diagnostic.Succeeded([]diagnostic.Record{{File: p, Line: 1, Column: 1, Message: "x"}})
	})
	require.NoError(t, server.Run(context.Background(), events))

	msgs := jsonrpctest.Messages(t, &out)
	require.Len(t, msgs, 3)
	var cleared protocol.PublishDiagnosticsParams
	jsonrpctest.Params(t, msgs[1], &cleared)
	assert.Empty(t, cleared.Diagnostics)
	assert.Empty(t, l.Paths())

	_, err := server.DocumentInfo(1)
	assert.Error(t, err)
}

func TestToolErrorShowsMessage(t *testing.T) {
	u := documentURI(filepath.Join(t.TempDir(), "app.js"))

	in := jsonrpctest.NewScript(t)
	in.Notify(protocol.MethodTextDocumentDidOpen, opened(u))
	in.Notify(protocol.MethodTextDocumentDidSave, saved(u))

	var out bytes.Buffer
	server, events, _ := newTestServer(t, in.Reader(), &out, func(context.Context, string) diagnostic.Outcome {
		return diagnostic.Failed("ERROR: Can't parse config file")
	})
	require.NoError(t, server.Run(context.Background(), events))

	msgs := jsonrpctest.Messages(t, &out)
	require.Equal(t, []string{protocol.MethodWindowShowMessage}, jsonrpctest.Methods(msgs))

	var p protocol.ShowMessageParams
	jsonrpctest.Params(t, msgs[0], &p)
	assert.Equal(t, protocol.MessageTypeError, p.Type)
	assert.Equal(t, "jshint: ERROR: Can't parse config file", p.Message)
}

func TestUnopenedDocumentsAreIgnored(t *testing.T) {
	in := jsonrpctest.NewScript(t)
	in.Notify(protocol.MethodTextDocumentDidSave, saved("file:///nope.js"))
	in.Notify(protocol.MethodTextDocumentDidClose, closed("file:///nope.js"))
	in.Notify(protocol.MethodTextDocumentDidOpen, opened("untitled:Untitled-1"))
	in.Notify(protocol.MethodTextDocumentDidOpen, "not params")
	in.Call(3, "textDocument/hover", nil)

	var out bytes.Buffer
	server, events, _ := newTestServer(t, in.Reader(), &out, func(context.Context, string) diagnostic.Outcome {
		t.Fatal("analyzer must not run")
		return diagnostic.Outcome{}
	})
	require.NoError(t, server.Run(context.Background(), events))

	msgs := jsonrpctest.Messages(t, &out)
	require.Len(t, msgs, 1)
	assert.Equal(t, jsonrpc2.MethodNotFound, jsonrpctest.ErrorCode(t, msgs[0]))
}

func TestDocumentURIRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir with space", "a.js")
	assert.Equal(t, path, documentPath(documentURI(path)))
	assert.Empty(t, documentPath("untitled:Untitled-1"))
	assert.Empty(t, documentPath(""))
	assert.Empty(t, documentURI(""))
}
