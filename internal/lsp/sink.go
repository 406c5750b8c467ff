package lsp

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"go.lsp.dev/protocol"

	"github.com/opencode-ai/lintwatch/internal/ledger"
	"github.com/opencode-ai/lintwatch/internal/logging"
)

type sinkEntry struct {
	seq  uint64
	item ledger.Item
}

// Sink collects ledger items per document and publishes the whole set on
// Flush, since LSP clients replace diagnostics per URI.
type Sink struct {
	server *Server
	mu     sync.Mutex
	seq    uint64
	items  map[ledger.Handle]sinkEntry
}

var (
	_ ledger.Sink    = (*Sink)(nil)
	_ ledger.Flusher = (*Sink)(nil)
)

func newSink(server *Server) *Sink {
	return &Sink{
		server: server,
		items:  make(map[ledger.Handle]sinkEntry),
	}
}

func (k *Sink) Add(item ledger.Item) ledger.Handle {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.seq++
	h := ledger.Handle(fmt.Sprintf("lsp-%d", k.seq))
	k.items[h] = sinkEntry{seq: k.seq, item: item}
	return h
}

func (k *Sink) Remove(h ledger.Handle) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.items, h)
}

// Flush publishes every item currently held for path, in the order they
// were added. An empty list clears the client's view of the document.
func (k *Sink) Flush(path string) {
	k.mu.Lock()
	entries := make([]sinkEntry, 0)
	for _, e := range k.items {
		if e.item.Path == path {
			entries = append(entries, e)
		}
	}
	k.mu.Unlock()

	slices.SortFunc(entries, func(a, b sinkEntry) int {
		return cmp.Compare(a.seq, b.seq)
	})

	list := make([]protocol.Diagnostic, 0, len(entries))
	for _, e := range entries {
		pos := protocol.Position{Line: uint32(e.item.Line), Character: uint32(e.item.Column)}
		list = append(list, protocol.Diagnostic{
			Range:    protocol.Range{Start: pos, End: pos},
			Severity: protocol.DiagnosticSeverityWarning,
			Source:   e.item.Provider,
			Message:  e.item.Message,
		})
	}

	if err := k.server.publish(path, list); err != nil {
		logging.Error("failed to publish diagnostics", "path", path, "error", err)
	}
}
