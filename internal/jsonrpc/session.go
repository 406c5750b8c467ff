// Package jsonrpc runs the stdio JSON-RPC sessions shared by the editor
// bridge and the language server on top of go.lsp.dev/jsonrpc2.
package jsonrpc

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"go.lsp.dev/jsonrpc2"

	"github.com/opencode-ai/lintwatch/internal/logging"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("exit without shutdown")
)

// Session is one peer connection over a pair of streams. Handlers run on a
// single goroutine in arrival order; notifications may be sent from any
// goroutine.
type Session struct {
	jsonrpc2.Conn

	pipe     *pipe
	shutdown atomic.Bool
	exited   atomic.Bool
	exit     chan error
}

func NewSession(in io.Reader, out io.Writer) *Session {
	p := &pipe{in: in, out: out}
	return &Session{
		Conn: jsonrpc2.NewConn(skipMalformed{Stream: jsonrpc2.NewStream(p), pipe: p}),
		pipe: p,
		exit: make(chan error, 1),
	}
}

// Shutdown records that the peer asked for an orderly shutdown.
func (s *Session) Shutdown() {
	s.shutdown.Store(true)
}

// Exit ends Serve with ErrExit, or ErrExitWithoutShutdown when no
// shutdown request came first.
func (s *Session) Exit() {
	err := ErrExitWithoutShutdown
	if s.shutdown.Load() {
		err = ErrExit
	}
	s.exited.Store(true)
	select {
	case s.exit <- err:
	default:
	}
}

// Serve dispatches incoming messages to handler until the peer exits, the
// input ends or ctx is done. End of input is not an error. Messages that
// arrive after exit are dropped unanswered.
func (s *Session) Serve(ctx context.Context, handler jsonrpc2.Handler) error {
	s.Go(ctx, func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if s.exited.Load() {
			return nil
		}
		return handler(ctx, reply, req)
	})

	select {
	case err := <-s.exit:
		_ = s.Close()
		return err
	case <-ctx.Done():
		_ = s.Close()
		return ctx.Err()
	case <-s.Done():
	}

	// exit may have been the last message before end of input
	select {
	case err := <-s.exit:
		return err
	default:
	}
	if err := s.Err(); err != nil && !s.pipe.ended() {
		return err
	}
	return nil
}

// pipe joins the two halves of a stdio transport and remembers the first
// read error, which tells transport failures apart from bad payloads.
type pipe struct {
	in  io.Reader
	out io.Writer

	mu      sync.Mutex
	readErr error
	closed  bool
}

func (p *pipe) Read(b []byte) (int, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return 0, io.EOF
	}

	n, err := p.in.Read(b)
	if err != nil {
		p.mu.Lock()
		if p.readErr == nil {
			p.readErr = err
		}
		p.mu.Unlock()
	}
	return n, err
}

func (p *pipe) Write(b []byte) (int, error) {
	return p.out.Write(b)
}

// Close stops reading. The output side stays usable so late notifications
// are not lost.
func (p *pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if c, ok := p.in.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (p *pipe) failed() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr == nil && p.closed {
		return io.ErrClosedPipe
	}
	return p.readErr
}

// ended reports whether reading stopped because the input was exhausted
// or the session was closed.
func (p *pipe) ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed || errors.Is(p.readErr, io.EOF)
}

// skipMalformed drops frames that cannot be decoded instead of failing the
// connection. Errors from the underlying reader are passed through.
type skipMalformed struct {
	jsonrpc2.Stream
	pipe *pipe
}

func (s skipMalformed) Read(ctx context.Context) (jsonrpc2.Message, int64, error) {
	var total int64
	for {
		msg, n, err := s.Stream.Read(ctx)
		total += n
		if err == nil || s.pipe.failed() != nil || ctx.Err() != nil {
			return msg, total, err
		}
		logging.Warn("skipping malformed message", "error", err)
	}
}
