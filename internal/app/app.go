package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/opencode-ai/lintwatch/internal/diagnostic"
	"github.com/opencode-ai/lintwatch/internal/ledger"
	"github.com/opencode-ai/lintwatch/internal/lifecycle"
	"github.com/opencode-ai/lintwatch/internal/logging"
	"github.com/opencode-ai/lintwatch/internal/pubsub"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Analyzer runs the external tool against one document.
type Analyzer interface {
	Analyze(ctx context.Context, path string) diagnostic.Outcome
}

// ErrorReporter is the operator-visible channel for tool failures.
type ErrorReporter interface {
	ReportToolError(path, message string)
}

// Diagnostics is the per-document published set.
type Diagnostics interface {
	Publish(path string, records []diagnostic.Record, nav ledger.Navigator)
	Clear(path string)
}

type Options struct {
	Analyzer    Analyzer
	Diagnostics Diagnostics
	Reporter    ErrorReporter
	Navigator   ledger.Navigator
	// Async runs analysis on per-path workers instead of the caller's
	// goroutine.
	Async         bool
	MaxConcurrent int
}

// App reacts to document lifecycle events: saves are analyzed and the
// results published, closes retract what was published.
type App struct {
	*pubsub.Broker[AnalysisEvent]

	analyzer    Analyzer
	diagnostics Diagnostics
	reporter    ErrorReporter
	navigator   ledger.Navigator
	async       bool
	maxWorkers  int

	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	seq      uint64
	queues   map[string]*pathQueue
	closedAt map[string]uint64
	stopped  bool
	wg       sync.WaitGroup
}

var _ lifecycle.Listener = (*App)(nil)

func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Analyzer == nil {
		return nil, errors.New("app: analyzer is required")
	}
	if opts.Diagnostics == nil {
		return nil, errors.New("app: diagnostics ledger is required")
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}

	workerCtx, cancel := context.WithCancel(ctx)
	return &App{
		Broker:      pubsub.NewBroker[AnalysisEvent](),
		analyzer:    opts.Analyzer,
		diagnostics: opts.Diagnostics,
		reporter:    opts.Reporter,
		navigator:   opts.Navigator,
		async:       opts.Async,
		maxWorkers:  opts.MaxConcurrent,
		sem:         semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		ctx:         workerCtx,
		cancel:      cancel,
		queues:      make(map[string]*pathQueue),
		closedAt:    make(map[string]uint64),
	}, nil
}

func (a *App) Opened(path string) {
	logging.Debug("document opened", "path", path)
}

// Saved schedules a full analysis of path.
func (a *App) Saved(path string) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		logging.Debug("save after shutdown ignored", "path", path)
		return
	}
	a.seq++
	j := newJob(path, a.seq)

	if !a.async {
		a.mu.Unlock()
		a.runJob(j)
		return
	}

	q, running := a.queues[path]
	if !running {
		q = &pathQueue{}
		a.queues[path] = q
		a.wg.Add(1)
	}
	q.jobs = append(q.jobs, j)
	a.mu.Unlock()

	if !running {
		go a.drain(path)
	}
}

// Closed retracts everything published for path. Analyses of earlier saves
// that are still queued or running will be discarded.
func (a *App) Closed(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, running := a.queues[path]; running {
		a.closedAt[path] = a.seq
	}
	a.diagnostics.Clear(path)
	logging.Debug("document closed", "path", path)
}

// CheckResult is the outcome of a one-shot analysis.
type CheckResult struct {
	Path    string
	Outcome diagnostic.Outcome
}

// Check analyzes paths without touching the published diagnostics.
// Results are returned in input order.
func (a *App) Check(ctx context.Context, paths []string) []CheckResult {
	results := make([]CheckResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxWorkers)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = CheckResult{Path: path, Outcome: a.analyzer.Analyze(gctx, path)}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Shutdown stops accepting saves and waits for queued analyses. If ctx
// expires first, running tools are killed and the remaining work is
// discarded.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("analysis did not drain before shutdown, cancelling")
		a.cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			logging.Error("analysis workers still running after cancel")
		}
		err = ctx.Err()
	}

	a.cancel()
	a.Broker.Shutdown()
	return err
}
