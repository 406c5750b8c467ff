// Package watch is a file-system host for the lifecycle pipeline. Files
// matching the include globs are opened when first seen, saved when
// written and closed when removed or renamed away.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/opencode-ai/lintwatch/internal/lifecycle"
	"github.com/opencode-ai/lintwatch/internal/logging"
)

type Options struct {
	Root     string
	Include  []string
	Exclude  []string
	Debounce time.Duration
	// ScanOnStart saves every file found by the initial scan so it is
	// analyzed without waiting for a write.
	ScanOnStart bool
}

// Watcher owns a cookie table for the files it tracks and acts as the
// lifecycle.Resolver for them.
type Watcher struct {
	matcher
	root        string
	fsys        fs.FS
	debounce    time.Duration
	scanOnStart bool

	fsw  *fsnotify.Watcher
	fire chan string
	done chan struct{}

	mu         sync.Mutex
	nextCookie lifecycle.Cookie
	cookies    map[string]lifecycle.Cookie
	paths      map[lifecycle.Cookie]string
	timers     map[string]*time.Timer
}

var _ lifecycle.Resolver = (*Watcher)(nil)

// New registers watches on root and every directory below it that is not
// excluded. Events arriving before Run starts are buffered.
func New(opts Options) (*Watcher, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root: %w", err)
	}
	m, err := newMatcher(opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		matcher:     m,
		root:        root,
		fsys:        os.DirFS(root),
		debounce:    opts.Debounce,
		scanOnStart: opts.ScanOnStart,
		fsw:         fsw,
		fire:        make(chan string, 64),
		done:        make(chan struct{}),
		cookies:     make(map[string]lifecycle.Cookie),
		paths:       make(map[lifecycle.Cookie]string),
		timers:      make(map[string]*time.Timer),
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) Root() string {
	return w.root
}

// DocumentInfo resolves a cookie handed out for a tracked file.
func (w *Watcher) DocumentInfo(cookie lifecycle.Cookie) (lifecycle.DocumentInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	path, ok := w.paths[cookie]
	if !ok {
		return lifecycle.DocumentInfo{}, fmt.Errorf("no tracked file for cookie %d", cookie)
	}
	return lifecycle.DocumentInfo{Path: path, EditLocks: 1}, nil
}

// Tracked returns the number of files currently open.
func (w *Watcher) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.paths)
}

// Run scans the tree, then forwards file-system events to events until ctx
// is cancelled. Every file still tracked is closed before Run returns.
func (w *Watcher) Run(ctx context.Context, events lifecycle.HostEvents) error {
	defer w.fsw.Close()
	defer close(w.done)
	defer w.closeAll(events)

	w.scan(events)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev, events)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logging.Warn("file watcher overflowed, rescanning", "root", w.root)
				w.scan(events)
				continue
			}
			logging.Error("file watcher error", "error", err)
		case path := <-w.fire:
			w.save(path, events)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, events lifecycle.HostEvents) {
	path := filepath.Clean(ev.Name)

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.excludedDir(w.rel(path)) {
				return
			}
			if err := w.addTree(path); err != nil {
				logging.Warn("failed to watch new directory", "path", path, "error", err)
			}
			// files may have landed before the watch was registered
			w.scanDir(path, events)
			return
		}
	}

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		for _, tracked := range w.under(path) {
			w.close(tracked, events)
		}
		return
	}

	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !w.matches(w.rel(path)) {
		return
	}
	w.open(path, events)
	w.schedule(path)
}

// scan opens every file below the root matched by the include globs.
func (w *Watcher) scan(events lifecycle.HostEvents) {
	w.scanDir(w.root, events)
}

// scanDir opens matching files below dir, which is the root or a directory
// that appeared after the initial scan.
func (w *Watcher) scanDir(dir string, events lifecycle.HostEvents) {
	err := w.walk(w.fsys, w.rel(dir), func(name string) {
		w.discover(filepath.Join(w.root, filepath.FromSlash(name)), events)
	})
	if err != nil {
		logging.Warn("failed to scan directory", "dir", dir, "error", err)
	}
}

func (w *Watcher) discover(path string, events lifecycle.HostEvents) {
	if !w.matches(w.rel(path)) {
		return
	}
	if w.open(path, events) && w.scanOnStart {
		w.save(path, events)
	}
}

// under returns the tracked paths equal to or below path.
func (w *Watcher) under(path string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []string
	prefix := path + string(filepath.Separator)
	for tracked := range w.cookies {
		if tracked == path || strings.HasPrefix(tracked, prefix) {
			out = append(out, tracked)
		}
	}
	return out
}

// open starts tracking path. It reports whether path was newly opened.
func (w *Watcher) open(path string, events lifecycle.HostEvents) bool {
	w.mu.Lock()
	if _, ok := w.cookies[path]; ok {
		w.mu.Unlock()
		return false
	}
	w.nextCookie++
	cookie := w.nextCookie
	w.cookies[path] = cookie
	w.paths[cookie] = path
	w.mu.Unlock()

	events.OnAfterFirstDocumentLock(cookie, lifecycle.LockEdit, 0, 1)
	return true
}

func (w *Watcher) save(path string, events lifecycle.HostEvents) {
	w.mu.Lock()
	cookie, ok := w.cookies[path]
	delete(w.timers, path)
	w.mu.Unlock()
	if !ok {
		return
	}
	events.OnAfterSave(cookie)
}

func (w *Watcher) close(path string, events lifecycle.HostEvents) {
	w.mu.Lock()
	cookie, ok := w.cookies[path]
	if t, pending := w.timers[path]; pending {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	if !ok {
		return
	}

	events.OnBeforeLastDocumentUnlock(cookie, lifecycle.LockEdit, 0, 0)

	w.mu.Lock()
	delete(w.cookies, path)
	delete(w.paths, cookie)
	w.mu.Unlock()
}

func (w *Watcher) closeAll(events lifecycle.HostEvents) {
	w.mu.Lock()
	paths := make([]string, 0, len(w.cookies))
	for path := range w.cookies {
		paths = append(paths, path)
	}
	w.mu.Unlock()

	for _, path := range paths {
		w.close(path, events)
	}
}

// schedule delivers a save for path once writes to it have been quiet for
// the debounce window. The save itself runs on the Run loop.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		select {
		case w.fire <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			logging.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.excludedDir(w.rel(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) rel(path string) string {
	return relSlash(w.root, path)
}
