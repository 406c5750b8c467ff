// Package lifecycle derives discrete opened, saved and closed events from
// a host's reference-counted document table.
package lifecycle

import (
	"slices"

	"github.com/opencode-ai/lintwatch/internal/logging"
)

// Cookie is the host's handle for one open instance of a document.
type Cookie uint32

// DocumentInfo is what the host reports about a cookie.
type DocumentInfo struct {
	Path      string
	ReadLocks uint32
	EditLocks uint32
}

// Resolver answers identity queries for cookies.
type Resolver interface {
	DocumentInfo(cookie Cookie) (DocumentInfo, error)
}

// Listener receives the derived lifecycle events.
type Listener interface {
	Opened(path string)
	Saved(path string)
	Closed(path string)
}

type document struct {
	cookie Cookie
	path   string
}

// Tracker keeps a document in its map exactly while the host has it open.
// It is not safe for concurrent use; the host's notification loop owns it.
type Tracker struct {
	resolver Resolver
	listener Listener
	docs     map[Cookie]*document
}

func NewTracker(resolver Resolver, listener Listener) *Tracker {
	return &Tracker{
		resolver: resolver,
		listener: listener,
		docs:     make(map[Cookie]*document),
	}
}

// OnFirstLockAcquired handles the host's first lock on a document. Hosts
// repeat this notification, so only the first one per cookie counts.
func (t *Tracker) OnFirstLockAcquired(cookie Cookie) {
	if _, ok := t.docs[cookie]; ok {
		logging.Debug("first lock on tracked document ignored", "cookie", cookie)
		return
	}

	info, err := t.resolver.DocumentInfo(cookie)
	if err != nil {
		logging.Debug("first lock on unknown document ignored", "cookie", cookie, "error", err)
		return
	}

	t.docs[cookie] = &document{cookie: cookie, path: info.Path}
	t.listener.Opened(info.Path)
}

// OnLastLockReleased handles the host's last-unlock notification. A
// document counts as closed only when both remaining lock counts are zero.
// This mirrors the host platform's lock accounting rather than a general
// rule and has to stay exactly as is.
func (t *Tracker) OnLastLockReleased(cookie Cookie, readRemaining, editRemaining uint32) {
	if readRemaining != 0 || editRemaining != 0 {
		logging.Debug("unlock with locks remaining ignored", "cookie", cookie, "read", readRemaining, "edit", editRemaining)
		return
	}

	doc, ok := t.docs[cookie]
	if !ok {
		logging.Debug("unlock on untracked document ignored", "cookie", cookie)
		return
	}

	delete(t.docs, cookie)
	t.listener.Closed(doc.path)
}

// OnSaved handles a save notification.
func (t *Tracker) OnSaved(cookie Cookie) {
	doc, ok := t.docs[cookie]
	if !ok {
		logging.Debug("save on untracked document ignored", "cookie", cookie)
		return
	}
	t.listener.Saved(doc.path)
}

// IsOpen reports whether cookie is tracked.
func (t *Tracker) IsOpen(cookie Cookie) bool {
	_, ok := t.docs[cookie]
	return ok
}

// Open returns the paths of all tracked documents, sorted.
func (t *Tracker) Open() []string {
	paths := make([]string, 0, len(t.docs))
	for _, doc := range t.docs {
		paths = append(paths, doc.path)
	}
	slices.Sort(paths)
	return paths
}
