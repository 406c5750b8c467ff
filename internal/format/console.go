package format

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/opencode-ai/lintwatch/internal/ledger"
)

type consoleEntry struct {
	seq  uint64
	item ledger.Item
}

// Console is a ledger sink for terminals. It prints the current set of
// diagnostics for a file each time the ledger flushes it.
type Console struct {
	w  io.Writer
	mu sync.Mutex

	seq   uint64
	items map[ledger.Handle]consoleEntry
}

var (
	_ ledger.Sink    = (*Console)(nil)
	_ ledger.Flusher = (*Console)(nil)
	_ ledger.Clearer = (*Console)(nil)
)

func NewConsole(w io.Writer) *Console {
	return &Console{w: w, items: make(map[ledger.Handle]consoleEntry)}
}

func (c *Console) Add(item ledger.Item) ledger.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	h := ledger.Handle(fmt.Sprintf("console-%d", c.seq))
	c.items[h] = consoleEntry{seq: c.seq, item: item}
	return h
}

func (c *Console) Remove(h ledger.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, h)
}

// Flush prints every diagnostic held for path. Positions are shown 1-based.
func (c *Console) Flush(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var entries []consoleEntry
	for _, e := range c.items {
		if e.item.Path == path {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b consoleEntry) int {
		return cmp.Compare(a.seq, b.seq)
	})

	var b strings.Builder
	if len(entries) == 0 {
		fmt.Fprintf(&b, "%s %s\n", pathColor.Sprint(path), passColor.Sprint("ok"))
	} else {
		fmt.Fprintf(&b, "%s %s\n", pathColor.Sprint(path), warnColor.Sprintf("%d problem(s)", len(entries)))
		for _, e := range entries {
			fmt.Fprintf(&b, "  %d:%d  %s  %s\n", e.item.Line+1, e.item.Column+1, warnColor.Sprint(e.item.Provider), e.item.Message)
		}
	}
	_, _ = io.WriteString(c.w, b.String())
}

// Cleared notes that path stopped being tracked and its diagnostics were
// withdrawn.
func (c *Console) Cleared(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n", pathColor.Sprint(path), skippedColor.Sprint("closed"))
}

// ReportToolError prints an analyzer failure.
func (c *Console) ReportToolError(path, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n  %s\n", pathColor.Sprint(path), errorColor.Sprint("error"), message)
}
