// Package ledger keeps the diagnostics currently shown for each document
// and keeps the host's diagnostics list in step with them.
package ledger

import (
	"slices"
	"sync"

	"github.com/opencode-ai/lintwatch/internal/diagnostic"
	"github.com/opencode-ai/lintwatch/internal/logging"
)

type entry struct {
	records []diagnostic.Record
	handles []Handle
}

// Ledger maps a document path to the records published for it.
type Ledger struct {
	mu       sync.RWMutex
	sink     Sink
	provider string
	entries  map[string]*entry
}

func New(sink Sink, provider string) *Ledger {
	return &Ledger{
		sink:     sink,
		provider: provider,
		entries:  make(map[string]*entry),
	}
}

// Publish replaces everything shown for path with records. Readers see
// either the old set or the new one. An empty set removes the entry.
func (l *Ledger) Publish(path string, records []diagnostic.Record, nav Navigator) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.retract(path)

	if len(records) > 0 {
		e := &entry{
			records: slices.Clone(records),
			handles: make([]Handle, 0, len(records)),
		}
		for _, rec := range records {
			e.handles = append(e.handles, l.sink.Add(l.item(path, rec, nav)))
		}
		l.entries[path] = e
	}

	l.flush(path)
	logging.Debug("diagnostics published", "path", path, "count", len(records))
}

// Clear removes every record shown for path.
func (l *Ledger) Clear(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.retract(path) {
		return
	}
	if c, ok := l.sink.(Clearer); ok {
		c.Cleared(path)
	} else {
		l.flush(path)
	}
	logging.Debug("diagnostics cleared", "path", path)
}

// Get returns the records published for path, 1-based as reported.
func (l *Ledger) Get(path string) ([]diagnostic.Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[path]
	if !ok {
		return nil, false
	}
	return slices.Clone(e.records), true
}

// Paths returns the paths that currently have diagnostics, sorted.
func (l *Ledger) Paths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	paths := make([]string, 0, len(l.entries))
	for p := range l.entries {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// retract removes the entry for path from the sink and the map. Caller
// holds l.mu.
func (l *Ledger) retract(path string) bool {
	e, ok := l.entries[path]
	if !ok {
		return false
	}
	for _, h := range e.handles {
		l.sink.Remove(h)
	}
	delete(l.entries, path)
	return true
}

func (l *Ledger) flush(path string) {
	if f, ok := l.sink.(Flusher); ok {
		f.Flush(path)
	}
}

func (l *Ledger) item(path string, rec diagnostic.Record, nav Navigator) Item {
	doc := rec.File
	if doc == "" {
		doc = path
	}
	line := max(0, rec.Line-1)
	col := max(0, rec.Column-1)

	return Item{
		Path:     path,
		Document: doc,
		Line:     line,
		Column:   col,
		Message:  rec.Message,
		Provider: l.provider,
		OnActivate: func() {
			if nav == nil {
				return
			}
			if err := nav.Navigate(doc, line, col); err != nil {
				logging.Debug("navigation failed", "document", doc, "line", line, "column", col, "error", err)
			}
		},
	}
}
