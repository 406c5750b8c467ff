package bridge

import (
	"sync"

	"github.com/google/uuid"
	"github.com/opencode-ai/lintwatch/internal/ledger"
	"github.com/opencode-ai/lintwatch/internal/logging"
)

// Sink mirrors ledger items into the host's diagnostics list. Each item
// gets a fresh id the host echoes back on activation.
type Sink struct {
	server *Server
	mu     sync.Mutex
	active map[ledger.Handle]func()
}

var _ ledger.Sink = (*Sink)(nil)

func newSink(server *Server) *Sink {
	return &Sink{
		server: server,
		active: make(map[ledger.Handle]func()),
	}
}

func (k *Sink) Add(item ledger.Item) ledger.Handle {
	h := ledger.Handle(uuid.NewString())

	k.mu.Lock()
	k.active[h] = item.OnActivate
	k.mu.Unlock()

	err := k.server.notify("diagnostics/add", addDiagnosticParams{
		ID:       string(h),
		Document: item.Document,
		Line:     item.Line,
		Column:   item.Column,
		Message:  item.Message,
		Provider: item.Provider,
	})
	if err != nil {
		logging.Error("failed to send diagnostic", "document", item.Document, "error", err)
	}
	return h
}

func (k *Sink) Remove(h ledger.Handle) {
	k.mu.Lock()
	delete(k.active, h)
	k.mu.Unlock()

	if err := k.server.notify("diagnostics/remove", removeDiagnosticParams{ID: string(h)}); err != nil {
		logging.Error("failed to retract diagnostic", "id", h, "error", err)
	}
}

// activate runs the callback registered for id. Unknown ids are ignored.
func (k *Sink) activate(id string) bool {
	k.mu.Lock()
	fn, ok := k.active[ledger.Handle(id)]
	k.mu.Unlock()

	if !ok || fn == nil {
		return false
	}
	fn()
	return true
}

// Len returns the number of diagnostics currently shown by the host.
func (k *Sink) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.active)
}
