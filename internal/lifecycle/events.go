package lifecycle

import "github.com/opencode-ai/lintwatch/internal/logging"

// Status is the result code handed back to the host for each callback.
type Status int32

// StatusOK is the only status ever returned; hosts must never see a
// rejection from a listener.
const StatusOK Status = 0

// LockType is the host's lock flag set.
type LockType uint32

const (
	LockNone     LockType = 0
	LockRead     LockType = 1
	LockEdit     LockType = 2
	LockWeakRead LockType = 4
)

// HostEvents is the full document-table notification surface a host
// delivers.
type HostEvents interface {
	OnAfterFirstDocumentLock(cookie Cookie, lockType LockType, readLocks, editLocks uint32) Status
	OnBeforeLastDocumentUnlock(cookie Cookie, lockType LockType, readRemaining, editRemaining uint32) Status
	OnAfterSave(cookie Cookie) Status
	OnAfterAttributeChange(cookie Cookie, attributes uint32) Status
	OnBeforeDocumentWindowShow(cookie Cookie, firstShow bool) Status
	OnAfterDocumentWindowHide(cookie Cookie) Status
}

// DocTableEvents adapts a Tracker to HostEvents. Only the lock and save
// notifications reach the tracker.
type DocTableEvents struct {
	tracker *Tracker
}

var _ HostEvents = (*DocTableEvents)(nil)

func NewDocTableEvents(tracker *Tracker) *DocTableEvents {
	return &DocTableEvents{tracker: tracker}
}

func (e *DocTableEvents) OnAfterFirstDocumentLock(cookie Cookie, _ LockType, _, _ uint32) Status {
	e.tracker.OnFirstLockAcquired(cookie)
	return StatusOK
}

func (e *DocTableEvents) OnBeforeLastDocumentUnlock(cookie Cookie, _ LockType, readRemaining, editRemaining uint32) Status {
	e.tracker.OnLastLockReleased(cookie, readRemaining, editRemaining)
	return StatusOK
}

func (e *DocTableEvents) OnAfterSave(cookie Cookie) Status {
	e.tracker.OnSaved(cookie)
	return StatusOK
}

func (e *DocTableEvents) OnAfterAttributeChange(cookie Cookie, attributes uint32) Status {
	logging.Debug("attribute change", "cookie", cookie, "attributes", attributes)
	return StatusOK
}

func (e *DocTableEvents) OnBeforeDocumentWindowShow(Cookie, bool) Status {
	return StatusOK
}

func (e *DocTableEvents) OnAfterDocumentWindowHide(Cookie) Status {
	return StatusOK
}
