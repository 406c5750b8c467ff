// Package lsp exposes lintwatch as a Language Server. Editors that speak
// LSP drive the same lifecycle pipeline as the host bridge: didOpen is a
// first lock, didSave a save and didClose a final unlock.
package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/opencode-ai/lintwatch/internal/jsonrpc"
	"github.com/opencode-ai/lintwatch/internal/lifecycle"
	"github.com/opencode-ai/lintwatch/internal/logging"
)

var (
	ErrExit                = jsonrpc.ErrExit
	ErrExitWithoutShutdown = jsonrpc.ErrExitWithoutShutdown
)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Name     string
	Version  string
	Provider string
}

// Server handles stdio JSON-RPC for the LSP front end.
type Server struct {
	session *jsonrpc.Session
	sink    *Sink
	events  lifecycle.HostEvents
	opts    ServerOptions

	mu            sync.Mutex
	nextCookie    lifecycle.Cookie
	cookies       map[uri.URI]lifecycle.Cookie
	docs          map[lifecycle.Cookie]openDoc
	uris          map[string]uri.URI // path -> uri as sent by the client
	workspaceRoot string
}

type openDoc struct {
	uri  uri.URI
	path string
}

var _ lifecycle.Resolver = (*Server)(nil)

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	s := &Server{
		session: jsonrpc.NewSession(in, out),
		opts:    opts,
		cookies: make(map[uri.URI]lifecycle.Cookie),
		docs:    make(map[lifecycle.Cookie]openDoc),
		uris:    make(map[string]uri.URI),
	}
	s.sink = newSink(s)
	return s
}

// Sink is the ledger sink publishing textDocument/publishDiagnostics.
func (s *Server) Sink() *Sink {
	return s.sink
}

// WorkspaceRoot is the root announced in initialize.
func (s *Server) WorkspaceRoot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspaceRoot
}

// DocumentInfo resolves a cookie handed out for an open document.
func (s *Server) DocumentInfo(cookie lifecycle.Cookie) (lifecycle.DocumentInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[cookie]
	if !ok {
		return lifecycle.DocumentInfo{}, fmt.Errorf("no open document for cookie %d", cookie)
	}
	return lifecycle.DocumentInfo{Path: doc.path, EditLocks: 1}, nil
}

// ReportToolError shows an analyzer failure in the client.
func (s *Server) ReportToolError(path, message string) {
	err := s.session.Notify(context.Background(), protocol.MethodWindowShowMessage, &protocol.ShowMessageParams{
		Type:    protocol.MessageTypeError,
		Message: fmt.Sprintf("%s: %s", s.opts.Provider, message),
	})
	if err != nil {
		logging.Error("failed to report tool error", "path", path, "error", err)
	}
}

// Run serves LSP requests until the client exits or closes the stream.
func (s *Server) Run(ctx context.Context, events lifecycle.HostEvents) error {
	s.events = events
	return s.session.Serve(ctx, s.handle)
}

func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case protocol.MethodInitialize:
		return s.initialize(ctx, reply, req)
	case protocol.MethodShutdown:
		s.shutdown()
		return reply(ctx, nil, nil)
	case protocol.MethodExit:
		s.session.Exit()
		return nil
	case protocol.MethodTextDocumentDidOpen:
		var params protocol.DidOpenTextDocumentParams
		if decode(req, &params) {
			s.didOpen(uri.URI(params.TextDocument.URI))
		}
		return nil
	case protocol.MethodTextDocumentDidSave:
		var params protocol.DidSaveTextDocumentParams
		if decode(req, &params) {
			s.didSave(uri.URI(params.TextDocument.URI))
		}
		return nil
	case protocol.MethodTextDocumentDidClose:
		var params protocol.DidCloseTextDocumentParams
		if decode(req, &params) {
			s.didClose(uri.URI(params.TextDocument.URI))
		}
		return nil
	case protocol.MethodInitialized, protocol.MethodTextDocumentDidChange,
		protocol.MethodWorkspaceDidChangeConfiguration, "$/cancelRequest", "$/setTrace":
		return nil
	default:
		return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
	}
}

func decode(req jsonrpc2.Request, v any) bool {
	if err := json.Unmarshal(req.Params(), v); err != nil {
		logging.Debug("malformed notification ignored", "method", req.Method(), "error", err)
		return false
	}
	return true
}

func (s *Server) initialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.InitializeParams
	if len(req.Params()) > 0 {
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, jsonrpc2.ErrInvalidParams)
		}
	}

	root := documentPath(uri.URI(params.RootURI))
	if root == "" && params.RootPath != "" {
		root = params.RootPath
	}
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = documentPath(uri.URI(params.WorkspaceFolders[0].URI))
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	s.mu.Lock()
	s.workspaceRoot = root
	s.mu.Unlock()

	return reply(ctx, &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			// analysis reads files from disk, so content changes are not needed
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindNone,
				Save:      &protocol.SaveOptions{IncludeText: false},
			},
		},
		ServerInfo: &protocol.ServerInfo{Name: s.opts.Name, Version: s.opts.Version},
	}, nil)
}

// shutdown closes every open document so clients are left with empty
// diagnostic sets.
func (s *Server) shutdown() {
	s.session.Shutdown()

	s.mu.Lock()
	cookies := make([]lifecycle.Cookie, 0, len(s.docs))
	for cookie := range s.docs {
		cookies = append(cookies, cookie)
	}
	s.mu.Unlock()

	for _, cookie := range cookies {
		s.close(cookie)
	}
}

func (s *Server) didOpen(u uri.URI) {
	path := documentPath(u)
	if path == "" {
		return
	}

	s.mu.Lock()
	cookie, ok := s.cookies[u]
	if !ok {
		s.nextCookie++
		cookie = s.nextCookie
		s.cookies[u] = cookie
		s.docs[cookie] = openDoc{uri: u, path: path}
		s.uris[path] = u
	}
	s.mu.Unlock()

	s.events.OnAfterFirstDocumentLock(cookie, lifecycle.LockEdit, 0, 1)
}

func (s *Server) didSave(u uri.URI) {
	s.mu.Lock()
	cookie, ok := s.cookies[u]
	s.mu.Unlock()
	if !ok {
		logging.Debug("didSave for unopened document ignored", "uri", u)
		return
	}
	s.events.OnAfterSave(cookie)
}

func (s *Server) didClose(u uri.URI) {
	s.mu.Lock()
	cookie, ok := s.cookies[u]
	s.mu.Unlock()
	if ok {
		s.close(cookie)
	}
}

func (s *Server) close(cookie lifecycle.Cookie) {
	s.events.OnBeforeLastDocumentUnlock(cookie, lifecycle.LockEdit, 0, 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[cookie]; ok {
		delete(s.cookies, doc.uri)
		delete(s.docs, cookie)
		delete(s.uris, doc.path)
	}
}

// publish sends the full diagnostic set for path, using the URI the client
// opened it with when known.
func (s *Server) publish(path string, list []protocol.Diagnostic) error {
	s.mu.Lock()
	u, ok := s.uris[path]
	s.mu.Unlock()
	if !ok {
		u = documentURI(path)
	}

	if list == nil {
		list = []protocol.Diagnostic{}
	}
	return s.session.Notify(context.Background(), protocol.MethodTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(u),
		Diagnostics: list,
	})
}
