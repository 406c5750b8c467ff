package ledger

// Handle identifies one diagnostic entry inside a Sink so it can be
// retracted later.
type Handle string

// Item is one diagnostic as presented to the UI. Line and Column are
// 0-based.
type Item struct {
	// Path is the ledger key the item was published under.
	Path string
	// Document is the file the finding points at.
	Document   string
	Line       int
	Column     int
	Message    string
	Provider   string
	OnActivate func()
}

// Sink is the host's diagnostics list.
type Sink interface {
	Add(item Item) Handle
	Remove(h Handle)
}

// Flusher is implemented by sinks that publish whole per-document sets.
// Flush is called once after every publish or clear of path.
type Flusher interface {
	Flush(path string)
}

// Clearer is implemented by sinks that show a cleared document differently
// from one that analyzed clean. Clear calls Cleared instead of Flush on
// such sinks.
type Clearer interface {
	Cleared(path string)
}

// Navigator moves the host's caret to a 0-based position.
type Navigator interface {
	Navigate(document string, line, column int) error
}
