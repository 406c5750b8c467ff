package app_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opencode-ai/lintwatch/internal/app"
	mock_app "github.com/opencode-ai/lintwatch/internal/app/mocks"
	"github.com/opencode-ai/lintwatch/internal/diagnostic"
	mock_ledger "github.com/opencode-ai/lintwatch/internal/ledger/mocks"
	"github.com/opencode-ai/lintwatch/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	analyzer    *mock_app.MockAnalyzer
	diagnostics *mock_app.MockDiagnostics
	reporter    *mock_app.MockErrorReporter
	navigator   *mock_ledger.MockNavigator
}

func setup(t *testing.T, async bool, maxConcurrent int) (*app.App, fixture) {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := fixture{
		analyzer:    mock_app.NewMockAnalyzer(ctrl),
		diagnostics: mock_app.NewMockDiagnostics(ctrl),
		reporter:    mock_app.NewMockErrorReporter(ctrl),
		navigator:   mock_ledger.NewMockNavigator(ctrl),
	}

	a, err := app.New(context.Background(), app.Options{
		Analyzer:      f.analyzer,
		Diagnostics:   f.diagnostics,
		Reporter:      f.reporter,
		Navigator:     f.navigator,
		Async:         async,
		MaxConcurrent: maxConcurrent,
	})
	require.NoError(t, err)
	return a, f
}

func shutdown(t *testing.T, a *app.App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))
}

var findings = []diagnostic.Record{
	{File: "/src/a.js", Line: 3, Column: 10, Message: "Missing semicolon."},
	{File: "/src/a.js", Line: 7, Column: 1, Message: "'x' is not defined."},
}

func TestNewRequiresAnalyzer(t *testing.T) {
	_, err := app.New(context.Background(), app.Options{})
	assert.Error(t, err)
}

func TestSavePublishesDiagnostics(t *testing.T) {
	a, f := setup(t, false, 1)
	defer shutdown(t, a)

	f.analyzer.EXPECT().Analyze(gomock.Any(), "/src/a.js").Return(diagnostic.Succeeded(findings))
	f.diagnostics.EXPECT().Publish("/src/a.js", findings, f.navigator)

	a.Opened("/src/a.js")
	a.Saved("/src/a.js")
}

func TestCleanSavePublishesEmptySet(t *testing.T) {
	a, f := setup(t, false, 1)
	defer shutdown(t, a)

	f.analyzer.EXPECT().Analyze(gomock.Any(), "/src/a.js").Return(diagnostic.Succeeded(nil))
	f.diagnostics.EXPECT().Publish("/src/a.js", []diagnostic.Record{}, f.navigator)

	a.Saved("/src/a.js")
}

func TestToolErrorLeavesLedgerUntouched(t *testing.T) {
	a, f := setup(t, false, 1)
	defer shutdown(t, a)

	f.analyzer.EXPECT().Analyze(gomock.Any(), "/src/a.js").Return(diagnostic.Failed("'jshint' is not recognized"))
	f.reporter.EXPECT().ReportToolError("/src/a.js", "'jshint' is not recognized")

	a.Saved("/src/a.js")
}

func TestSkippedOutcomeLeavesLedgerUntouched(t *testing.T) {
	a, f := setup(t, false, 1)
	defer shutdown(t, a)

	f.analyzer.EXPECT().Analyze(gomock.Any(), "/src/notes.txt").Return(diagnostic.Skipped())

	a.Saved("/src/notes.txt")
}

func TestCloseClearsLedger(t *testing.T) {
	a, f := setup(t, false, 1)
	defer shutdown(t, a)

	f.diagnostics.EXPECT().Clear("/src/a.js")
	a.Closed("/src/a.js")
}

func TestCloseWinsOverInFlightAnalysis(t *testing.T) {
	a, f := setup(t, true, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := a.Subscribe(ctx)

	started := make(chan struct{})
	release := make(chan struct{})
	f.analyzer.EXPECT().Analyze(gomock.Any(), "/src/a.js").DoAndReturn(func(context.Context, string) diagnostic.Outcome {
		close(started)
		<-release
		return diagnostic.Succeeded(findings)
	})
	f.diagnostics.EXPECT().Clear("/src/a.js")

	a.Saved("/src/a.js")
	<-started
	a.Closed("/src/a.js")
	close(release)

	shutdown(t, a)

	var statuses []app.AnalysisStatus
	for ev := range events {
		statuses = append(statuses, ev.Payload.Status)
	}
	assert.Equal(t, []app.AnalysisStatus{app.AnalysisStarted, app.AnalysisDiscarded}, statuses)
}

func TestQueuedSaveAfterCloseIsDiscarded(t *testing.T) {
	a, f := setup(t, true, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	// only the first save ever reaches the analyzer
	f.analyzer.EXPECT().Analyze(gomock.Any(), "/src/a.js").DoAndReturn(func(context.Context, string) diagnostic.Outcome {
		close(started)
		<-release
		return diagnostic.Succeeded(findings)
	}).Times(1)
	f.diagnostics.EXPECT().Clear("/src/a.js")

	a.Saved("/src/a.js")
	<-started
	a.Saved("/src/a.js")
	a.Closed("/src/a.js")
	close(release)

	shutdown(t, a)
}

func TestResultsCommittedInSaveOrder(t *testing.T) {
	a, f := setup(t, true, 4)

	first := findings[:1]
	second := findings[1:]

	gomock.InOrder(
		f.analyzer.EXPECT().Analyze(gomock.Any(), "/src/a.js").DoAndReturn(func(context.Context, string) diagnostic.Outcome {
			time.Sleep(50 * time.Millisecond)
			return diagnostic.Succeeded(first)
		}),
		f.diagnostics.EXPECT().Publish("/src/a.js", first, f.navigator),
		f.analyzer.EXPECT().Analyze(gomock.Any(), "/src/a.js").Return(diagnostic.Succeeded(second)),
		f.diagnostics.EXPECT().Publish("/src/a.js", second, f.navigator),
	)

	a.Saved("/src/a.js")
	a.Saved("/src/a.js")

	shutdown(t, a)
}

func TestMaxConcurrentBoundsAnalyses(t *testing.T) {
	a, f := setup(t, true, 1)

	var running, peak atomic.Int32
	f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, string) diagnostic.Outcome {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return diagnostic.Succeeded(nil)
	}).Times(3)
	f.diagnostics.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Times(3)

	a.Saved("/src/a.js")
	a.Saved("/src/b.js")
	a.Saved("/src/c.js")

	shutdown(t, a)
	assert.Equal(t, int32(1), peak.Load())
}

func TestSaveAfterShutdownIsIgnored(t *testing.T) {
	a, _ := setup(t, true, 1)
	shutdown(t, a)

	a.Saved("/src/a.js")
}

func TestEventsCarryRunDetails(t *testing.T) {
	a, f := setup(t, false, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := a.Subscribe(ctx)

	f.analyzer.EXPECT().Analyze(gomock.Any(), "/src/a.js").Return(diagnostic.Succeeded(findings))
	f.diagnostics.EXPECT().Publish("/src/a.js", findings, f.navigator)

	a.Saved("/src/a.js")
	shutdown(t, a)

	var got []pubsub.Event[app.AnalysisEvent]
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 2)
	assert.Equal(t, pubsub.CreatedEvent, got[0].Type)
	assert.Equal(t, pubsub.UpdatedEvent, got[1].Type)
	assert.Equal(t, app.AnalysisFinished, got[1].Payload.Status)
	assert.Equal(t, 2, got[1].Payload.Diagnostics)
	assert.Equal(t, uint64(1), got[1].Payload.Seq)
	assert.NotEmpty(t, got[1].Payload.RunID)
	assert.Equal(t, got[0].Payload.RunID, got[1].Payload.RunID)
}

func TestCheckKeepsInputOrder(t *testing.T) {
	a, f := setup(t, true, 2)
	defer shutdown(t, a)

	var mu sync.Mutex
	seen := map[string]bool{}
	f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, path string) diagnostic.Outcome {
		mu.Lock()
		seen[path] = true
		mu.Unlock()
		if path == "/src/bad.js" {
			return diagnostic.Failed("boom")
		}
		return diagnostic.Succeeded(nil)
	}).Times(3)

	results := a.Check(context.Background(), []string{"/src/a.js", "/src/bad.js", "/src/c.js"})

	require.Len(t, results, 3)
	assert.Equal(t, "/src/a.js", results[0].Path)
	assert.True(t, results[0].Outcome.IsPass())
	assert.Equal(t, "/src/bad.js", results[1].Path)
	assert.True(t, results[1].Outcome.IsError())
	assert.Equal(t, "/src/c.js", results[2].Path)
	assert.Len(t, seen, 3)
}
