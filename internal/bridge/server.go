// Package bridge connects lintwatch to an editor host over stdio. The host
// forwards its running-document-table notifications; the bridge answers
// with diagnostics list updates, operator messages and navigation
// requests.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/opencode-ai/lintwatch/internal/jsonrpc"
	"github.com/opencode-ai/lintwatch/internal/ledger"
	"github.com/opencode-ai/lintwatch/internal/lifecycle"
	"github.com/opencode-ai/lintwatch/internal/logging"
)

var (
	ErrExit                = jsonrpc.ErrExit
	ErrExitWithoutShutdown = jsonrpc.ErrExitWithoutShutdown
)

// ServerOptions configures the bridge.
type ServerOptions struct {
	Name     string
	Version  string
	Provider string
}

// Server handles the host's JSON-RPC stream.
type Server struct {
	session  *jsonrpc.Session
	docs     *DocumentTable
	sink     *Sink
	events   lifecycle.HostEvents
	opts     ServerOptions
	rootPath string
}

var _ ledger.Navigator = (*Server)(nil)

// NewServer constructs a bridge reading host messages from in and writing
// to out.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	s := &Server{
		session: jsonrpc.NewSession(in, out),
		docs:    NewDocumentTable(),
		opts:    opts,
	}
	s.sink = newSink(s)
	return s
}

// Documents is the mirrored document table; it resolves cookies for the
// lifecycle tracker.
func (s *Server) Documents() *DocumentTable {
	return s.docs
}

// Sink is the host's diagnostics list.
func (s *Server) Sink() *Sink {
	return s.sink
}

// RootPath is the workspace root announced by the host, if any.
func (s *Server) RootPath() string {
	return s.rootPath
}

func (s *Server) notify(method string, params any) error {
	return s.session.Notify(context.Background(), method, params)
}

// ReportToolError shows an analyzer failure to the operator.
func (s *Server) ReportToolError(path, message string) {
	err := s.notify(protocol.MethodWindowShowMessage, &protocol.ShowMessageParams{
		Type:    protocol.MessageTypeError,
		Message: fmt.Sprintf("%s: %s", s.opts.Provider, message),
	})
	if err != nil {
		logging.Error("failed to report tool error", "path", path, "error", err)
	}
}

// Navigate asks the host to open document at a 0-based position.
func (s *Server) Navigate(document string, line, column int) error {
	return s.notify("editor/navigate", navigateParams{
		Document: document,
		Line:     line,
		Column:   column,
	})
}

// Run serves host messages until the stream ends or the host exits.
// Document-table notifications are delivered to events in arrival order.
func (s *Server) Run(ctx context.Context, events lifecycle.HostEvents) error {
	s.events = events
	return s.session.Serve(ctx, s.handle)
}

func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	status := func(st lifecycle.Status) error {
		return reply(ctx, statusResult{Status: st}, nil)
	}

	switch req.Method() {
	case protocol.MethodInitialize:
		return s.initialize(ctx, reply, req)
	case protocol.MethodInitialized:
		return nil
	case protocol.MethodShutdown:
		s.session.Shutdown()
		return reply(ctx, nil, nil)
	case protocol.MethodExit:
		s.session.Exit()
		return nil
	case "documentTable/afterFirstDocumentLock":
		var p firstLockParams
		if decode(req, &p) {
			s.docs.lock(p.Cookie, p.Path, p.ReadLocks, p.EditLocks)
			return status(s.events.OnAfterFirstDocumentLock(p.Cookie, p.LockType, p.ReadLocks, p.EditLocks))
		}
		return status(lifecycle.StatusOK)
	case "documentTable/beforeLastDocumentUnlock":
		var p lastUnlockParams
		if decode(req, &p) {
			st := s.events.OnBeforeLastDocumentUnlock(p.Cookie, p.LockType, p.ReadLocksRemaining, p.EditLocksRemaining)
			s.docs.unlock(p.Cookie, p.ReadLocksRemaining, p.EditLocksRemaining)
			return status(st)
		}
		return status(lifecycle.StatusOK)
	case "documentTable/afterSave":
		var p cookieParams
		if decode(req, &p) {
			return status(s.events.OnAfterSave(p.Cookie))
		}
		return status(lifecycle.StatusOK)
	case "documentTable/afterAttributeChange":
		var p attributeChangeParams
		if decode(req, &p) {
			if p.NewPath != "" {
				s.docs.rename(p.Cookie, p.NewPath)
			}
			return status(s.events.OnAfterAttributeChange(p.Cookie, p.Attributes))
		}
		return status(lifecycle.StatusOK)
	case "documentTable/beforeDocumentWindowShow":
		var p windowShowParams
		if decode(req, &p) {
			return status(s.events.OnBeforeDocumentWindowShow(p.Cookie, p.FirstShow))
		}
		return status(lifecycle.StatusOK)
	case "documentTable/afterDocumentWindowHide":
		var p cookieParams
		if decode(req, &p) {
			return status(s.events.OnAfterDocumentWindowHide(p.Cookie))
		}
		return status(lifecycle.StatusOK)
	case "diagnostics/activate":
		var p activateParams
		if decode(req, &p) && !s.sink.activate(p.ID) {
			logging.Debug("activation for unknown diagnostic ignored", "id", p.ID)
		}
		return reply(ctx, nil, nil)
	default:
		return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
	}
}

func (s *Server) initialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params initializeParams
	if len(req.Params()) > 0 {
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, jsonrpc2.ErrInvalidParams)
		}
	}
	s.rootPath = params.RootPath
	logging.Info("host connected", "client", params.ClientName, "root", params.RootPath)

	return reply(ctx, initializeResult{
		Name:     s.opts.Name,
		Version:  s.opts.Version,
		Provider: s.opts.Provider,
		Capabilities: capabilities{
			DocumentTable: true,
			Activate:      true,
			Navigate:      true,
		},
	}, nil)
}

// decode reports whether the params of req could be read into v. Malformed
// document-table notifications are logged and dropped; the host never
// sees a rejection.
func decode(req jsonrpc2.Request, v any) bool {
	if len(req.Params()) == 0 {
		logging.Debug("notification without params ignored", "method", req.Method())
		return false
	}
	if err := json.Unmarshal(req.Params(), v); err != nil {
		logging.Debug("malformed notification ignored", "method", req.Method(), "error", err)
		return false
	}
	return true
}
