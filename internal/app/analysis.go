package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/opencode-ai/lintwatch/internal/diagnostic"
	"github.com/opencode-ai/lintwatch/internal/logging"
	"github.com/opencode-ai/lintwatch/internal/pubsub"
)

type AnalysisStatus string

const (
	AnalysisStarted   AnalysisStatus = "started"
	AnalysisFinished  AnalysisStatus = "finished"
	AnalysisFailed    AnalysisStatus = "failed"
	AnalysisSkipped   AnalysisStatus = "skipped"
	AnalysisDiscarded AnalysisStatus = "discarded"
)

// AnalysisEvent describes one step of a save's analysis.
type AnalysisEvent struct {
	RunID       string
	Path        string
	Seq         uint64
	Status      AnalysisStatus
	Diagnostics int
	Error       string
	Duration    time.Duration
}

type job struct {
	runID string
	path  string
	seq   uint64
}

func newJob(path string, seq uint64) job {
	return job{runID: uuid.NewString(), path: path, seq: seq}
}

type pathQueue struct {
	jobs []job
}

// drain runs the queued jobs for path one after another, so results for
// the same document are committed in save order.
func (a *App) drain(path string) {
	defer a.wg.Done()

	for {
		a.mu.Lock()
		q := a.queues[path]
		if len(q.jobs) == 0 {
			delete(a.queues, path)
			delete(a.closedAt, path)
			a.mu.Unlock()
			return
		}
		j := q.jobs[0]
		q.jobs = q.jobs[1:]
		a.mu.Unlock()

		a.runJob(j)
	}
}

func (a *App) stale(j job) bool {
	closed, ok := a.closedAt[j.path]
	return ok && j.seq <= closed
}

func (a *App) runJob(j job) {
	defer logging.RecoverPanic("analysis", nil)

	a.mu.Lock()
	skip := a.stale(j)
	a.mu.Unlock()
	if skip {
		a.emit(j, AnalysisDiscarded, 0, "", 0)
		return
	}

	if err := a.sem.Acquire(a.ctx, 1); err != nil {
		a.emit(j, AnalysisDiscarded, 0, err.Error(), 0)
		return
	}
	a.Publish(pubsub.CreatedEvent, AnalysisEvent{RunID: j.runID, Path: j.path, Seq: j.seq, Status: AnalysisStarted})

	started := time.Now()
	outcome := func() diagnostic.Outcome {
		defer a.sem.Release(1)
		return a.analyzer.Analyze(a.ctx, j.path)
	}()

	a.commit(j, outcome, time.Since(started))
}

// commit applies an outcome unless a close for the path arrived after the
// save that produced it.
func (a *App) commit(j job, outcome diagnostic.Outcome, took time.Duration) {
	a.mu.Lock()
	if a.stale(j) {
		a.mu.Unlock()
		logging.Debug("analysis result discarded, document closed", "path", j.path, "seq", j.seq)
		a.emit(j, AnalysisDiscarded, 0, "", took)
		return
	}
	if outcome.Kind == diagnostic.KindDiagnostics {
		a.diagnostics.Publish(j.path, outcome.Diagnostics, a.navigator)
	}
	a.mu.Unlock()

	switch {
	case outcome.IsError():
		logging.Warn("analyzer reported an error", "path", j.path, "error", outcome.ToolError)
		if a.reporter != nil {
			a.reporter.ReportToolError(j.path, outcome.ToolError)
		}
		a.emit(j, AnalysisFailed, 0, outcome.ToolError, took)
	case outcome.IsSkipped():
		a.emit(j, AnalysisSkipped, 0, "", took)
	default:
		logging.Info("analysis finished", "path", j.path, "diagnostics", len(outcome.Diagnostics), "duration", took)
		a.emit(j, AnalysisFinished, len(outcome.Diagnostics), "", took)
	}
}

func (a *App) emit(j job, status AnalysisStatus, count int, errMsg string, took time.Duration) {
	a.Publish(pubsub.UpdatedEvent, AnalysisEvent{
		RunID:       j.runID,
		Path:        j.path,
		Seq:         j.seq,
		Status:      status,
		Diagnostics: count,
		Error:       errMsg,
		Duration:    took,
	})
}
