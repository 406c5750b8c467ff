package bridge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/opencode-ai/lintwatch/internal/lifecycle"
)

var ErrUnknownDocument = errors.New("unknown document")

// DocumentTable mirrors the host's running document table from the
// notifications it sends, so identity queries never go back to the host
// while one of its notifications is being handled.
type DocumentTable struct {
	mu   sync.Mutex
	docs map[lifecycle.Cookie]lifecycle.DocumentInfo
}

var _ lifecycle.Resolver = (*DocumentTable)(nil)

func NewDocumentTable() *DocumentTable {
	return &DocumentTable{docs: make(map[lifecycle.Cookie]lifecycle.DocumentInfo)}
}

func (t *DocumentTable) lock(cookie lifecycle.Cookie, path string, read, edit uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info := t.docs[cookie]
	if path != "" {
		info.Path = path
	}
	info.ReadLocks = read
	info.EditLocks = edit
	t.docs[cookie] = info
}

func (t *DocumentTable) unlock(cookie lifecycle.Cookie, readRemaining, editRemaining uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.docs[cookie]
	if !ok {
		return
	}
	if readRemaining == 0 && editRemaining == 0 {
		delete(t.docs, cookie)
		return
	}
	info.ReadLocks = readRemaining
	info.EditLocks = editRemaining
	t.docs[cookie] = info
}

func (t *DocumentTable) rename(cookie lifecycle.Cookie, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if info, ok := t.docs[cookie]; ok {
		info.Path = path
		t.docs[cookie] = info
	}
}

// DocumentInfo answers the tracker's identity query from the mirror.
func (t *DocumentTable) DocumentInfo(cookie lifecycle.Cookie) (lifecycle.DocumentInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.docs[cookie]
	if !ok || info.Path == "" {
		return lifecycle.DocumentInfo{}, fmt.Errorf("%w: cookie %d", ErrUnknownDocument, cookie)
	}
	return info, nil
}

func (t *DocumentTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.docs)
}
