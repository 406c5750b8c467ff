// Package jsonrpctest builds framed input for stdio sessions and decodes
// what they wrote back.
package jsonrpctest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
)

// Script accumulates messages for a session to read.
type Script struct {
	t      testing.TB
	buf    bytes.Buffer
	stream jsonrpc2.Stream
}

func NewScript(t testing.TB) *Script {
	s := &Script{t: t}
	s.stream = jsonrpc2.NewStream(&source{r: &s.buf, w: &s.buf})
	return s
}

// Reader is the session's input.
func (s *Script) Reader() io.Reader {
	return &s.buf
}

func (s *Script) Call(id int32, method string, params any) {
	s.t.Helper()
	call, err := jsonrpc2.NewCall(jsonrpc2.NewNumberID(id), method, params)
	require.NoError(s.t, err)
	s.write(call)
}

func (s *Script) Notify(method string, params any) {
	s.t.Helper()
	n, err := jsonrpc2.NewNotification(method, params)
	require.NoError(s.t, err)
	s.write(n)
}

// Raw frames payload as is.
func (s *Script) Raw(payload string) {
	fmt.Fprintf(&s.buf, "Content-Length: %d\r\n\r\n%s", len(payload), payload)
}

func (s *Script) write(msg jsonrpc2.Message) {
	s.t.Helper()
	_, err := s.stream.Write(context.Background(), msg)
	require.NoError(s.t, err)
}

// Messages decodes every message written to out.
func Messages(t testing.TB, out *bytes.Buffer) []jsonrpc2.Message {
	t.Helper()
	src := &source{r: bytes.NewReader(out.Bytes())}
	stream := jsonrpc2.NewStream(src)

	var msgs []jsonrpc2.Message
	for {
		msg, _, err := stream.Read(context.Background())
		if err != nil && src.eof {
			return msgs
		}
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}
}

// Method names a message for order assertions; responses are "response".
func Method(msg jsonrpc2.Message) string {
	switch m := msg.(type) {
	case jsonrpc2.Request:
		return m.Method()
	case *jsonrpc2.Response:
		return "response"
	default:
		return fmt.Sprintf("%T", msg)
	}
}

func Methods(msgs []jsonrpc2.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Method(m))
	}
	return out
}

// Params decodes the params of a request or notification into v.
func Params(t testing.TB, msg jsonrpc2.Message, v any) {
	t.Helper()
	req, ok := msg.(jsonrpc2.Request)
	require.True(t, ok, "expected a request, got %T", msg)
	require.NoError(t, json.Unmarshal(req.Params(), v))
}

// Result decodes a successful response into v.
func Result(t testing.TB, msg jsonrpc2.Message, v any) {
	t.Helper()
	resp, ok := msg.(*jsonrpc2.Response)
	require.True(t, ok, "expected a response, got %T", msg)
	require.NoError(t, resp.Err())
	require.NoError(t, json.Unmarshal(resp.Result(), v))
}

// ErrorCode returns the code of a failed response.
func ErrorCode(t testing.TB, msg jsonrpc2.Message) jsonrpc2.Code {
	t.Helper()
	resp, ok := msg.(*jsonrpc2.Response)
	require.True(t, ok, "expected a response, got %T", msg)
	var rpcErr *jsonrpc2.Error
	require.True(t, errors.As(resp.Err(), &rpcErr), "expected an error response")
	return rpcErr.Code
}

// source records end of input so Messages can tell it from a bad frame.
type source struct {
	r   io.Reader
	w   io.Writer
	eof bool
}

func (s *source) Read(b []byte) (int, error) {
	n, err := s.r.Read(b)
	if errors.Is(err, io.EOF) {
		s.eof = true
	}
	return n, err
}

func (s *source) Write(b []byte) (int, error) { return s.w.Write(b) }
func (s *source) Close() error                { return nil }
