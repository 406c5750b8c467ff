package lifecycle

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mapResolver map[Cookie]string

func (m mapResolver) DocumentInfo(cookie Cookie) (DocumentInfo, error) {
	path, ok := m[cookie]
	if !ok {
		return DocumentInfo{}, errors.New("unknown cookie")
	}
	return DocumentInfo{Path: path, EditLocks: 1}, nil
}

type recorder struct {
	events []string
}

func (r *recorder) Opened(path string) { r.events = append(r.events, "opened "+path) }
func (r *recorder) Saved(path string)  { r.events = append(r.events, "saved "+path) }
func (r *recorder) Closed(path string) { r.events = append(r.events, "closed "+path) }

func newTestTracker() (*Tracker, *recorder) {
	rec := &recorder{}
	return NewTracker(mapResolver{7: "/src/a.js", 8: "/src/b.js"}, rec), rec
}

func TestFirstLockIsIdempotent(t *testing.T) {
	tr, rec := newTestTracker()

	for i := 0; i < 3; i++ {
		tr.OnFirstLockAcquired(7)
	}

	assert.Equal(t, []string{"opened /src/a.js"}, rec.events)
	assert.True(t, tr.IsOpen(7))
}

func TestUnknownCookieIsIgnored(t *testing.T) {
	tr, rec := newTestTracker()

	tr.OnFirstLockAcquired(99)
	tr.OnSaved(99)
	tr.OnLastLockReleased(99, 0, 0)

	assert.Empty(t, rec.events)
	assert.False(t, tr.IsOpen(99))
}

func TestCloseRequiresBothCountsZero(t *testing.T) {
	tests := []struct {
		read, edit uint32
		closed     bool
	}{
		{0, 0, true},
		{1, 0, false},
		{0, 1, false},
		{2, 3, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("read=%d edit=%d", tt.read, tt.edit), func(t *testing.T) {
			tr, rec := newTestTracker()
			tr.OnFirstLockAcquired(7)
			tr.OnLastLockReleased(7, tt.read, tt.edit)

			assert.Equal(t, !tt.closed, tr.IsOpen(7))
			if tt.closed {
				assert.Equal(t, []string{"opened /src/a.js", "closed /src/a.js"}, rec.events)
			} else {
				assert.Equal(t, []string{"opened /src/a.js"}, rec.events)
			}
		})
	}
}

func TestUnlockWithoutOpenIsIgnored(t *testing.T) {
	tr, rec := newTestTracker()

	tr.OnLastLockReleased(7, 0, 0)
	assert.Empty(t, rec.events)
}

func TestSaveOnlyWhenTracked(t *testing.T) {
	tr, rec := newTestTracker()

	tr.OnSaved(7)
	tr.OnFirstLockAcquired(7)
	tr.OnSaved(7)
	tr.OnSaved(7)
	tr.OnLastLockReleased(7, 0, 0)
	tr.OnSaved(7)

	assert.Equal(t, []string{
		"opened /src/a.js",
		"saved /src/a.js",
		"saved /src/a.js",
		"closed /src/a.js",
	}, rec.events)
}

func TestReopenAfterClose(t *testing.T) {
	tr, rec := newTestTracker()

	tr.OnFirstLockAcquired(7)
	tr.OnLastLockReleased(7, 0, 0)
	tr.OnFirstLockAcquired(7)

	assert.Equal(t, []string{"opened /src/a.js", "closed /src/a.js", "opened /src/a.js"}, rec.events)
}

func TestOpenedCountMatchesTransitions(t *testing.T) {
	tr, rec := newTestTracker()

	// noisy stream: repeated first-locks and partial unlocks interleaved
	tr.OnFirstLockAcquired(7)
	tr.OnFirstLockAcquired(8)
	tr.OnFirstLockAcquired(7)
	tr.OnLastLockReleased(7, 1, 0)
	tr.OnFirstLockAcquired(8)
	tr.OnLastLockReleased(8, 0, 0)
	tr.OnFirstLockAcquired(8)
	tr.OnFirstLockAcquired(7)

	opened := 0
	closed := 0
	for _, ev := range rec.events {
		switch ev[:6] {
		case "opened":
			opened++
		case "closed":
			closed++
		}
	}
	assert.Equal(t, 3, opened)
	assert.Equal(t, 1, closed)
	assert.Equal(t, []string{"/src/a.js", "/src/b.js"}, tr.Open())
}

func TestDocTableEventsAlwaysOK(t *testing.T) {
	tr, rec := newTestTracker()
	ev := NewDocTableEvents(tr)

	assert.Equal(t, StatusOK, ev.OnAfterFirstDocumentLock(7, LockEdit, 0, 1))
	assert.Equal(t, StatusOK, ev.OnAfterSave(7))
	assert.Equal(t, StatusOK, ev.OnAfterAttributeChange(7, 1))
	assert.Equal(t, StatusOK, ev.OnBeforeDocumentWindowShow(7, true))
	assert.Equal(t, StatusOK, ev.OnAfterDocumentWindowHide(7))
	assert.Equal(t, StatusOK, ev.OnBeforeLastDocumentUnlock(7, LockEdit, 0, 0))

	// unknown cookies and out-of-order input are still accepted
	assert.Equal(t, StatusOK, ev.OnAfterSave(42))
	assert.Equal(t, StatusOK, ev.OnBeforeLastDocumentUnlock(42, LockRead, 0, 0))
	assert.Equal(t, StatusOK, ev.OnAfterFirstDocumentLock(42, LockRead, 1, 0))

	assert.Equal(t, []string{
		"opened /src/a.js",
		"saved /src/a.js",
		"closed /src/a.js",
	}, rec.events)
}
