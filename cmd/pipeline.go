package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opencode-ai/lintwatch/internal/analyzer"
	"github.com/opencode-ai/lintwatch/internal/app"
	"github.com/opencode-ai/lintwatch/internal/config"
	"github.com/opencode-ai/lintwatch/internal/jsonrpc"
	"github.com/opencode-ai/lintwatch/internal/ledger"
	"github.com/opencode-ai/lintwatch/internal/lifecycle"
	"github.com/opencode-ai/lintwatch/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// pipeline is the host-independent half of every long-running command:
// analyzer, ledger and orchestrator.
type pipeline struct {
	invoker *analyzer.Invoker
	ledger  *ledger.Ledger
	app     *app.App
}

// host is the part that varies: where diagnostics are shown, where tool
// errors go and how navigation is performed.
type host struct {
	sink      ledger.Sink
	reporter  app.ErrorReporter
	navigator ledger.Navigator
}

func newPipeline(ctx context.Context, cfg *config.Config, h host) (*pipeline, error) {
	resolved, err := analyzer.Resolve(cfg.Analyzer)
	if err != nil {
		return nil, err
	}
	invoker := analyzer.NewInvoker(resolved)
	l := ledger.New(h.sink, cfg.Provider.Name)

	a, err := app.New(ctx, app.Options{
		Analyzer:      invoker,
		Diagnostics:   l,
		Reporter:      h.reporter,
		Navigator:     h.navigator,
		Async:         cfg.Analysis.Async,
		MaxConcurrent: cfg.Analysis.MaxConcurrent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create app: %w", err)
	}

	logging.Info("analysis pipeline ready",
		"analyzer", resolved.Name,
		"async", cfg.Analysis.Async,
		"maxConcurrent", cfg.Analysis.MaxConcurrent)
	return &pipeline{invoker: invoker, ledger: l, app: a}, nil
}

// events wires a tracker resolving cookies through resolver into the
// orchestrator.
func (p *pipeline) events(resolver lifecycle.Resolver) lifecycle.HostEvents {
	return lifecycle.NewDocTableEvents(lifecycle.NewTracker(resolver, p.app))
}

func (p *pipeline) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := p.app.Shutdown(ctx); err != nil {
		logging.Warn("analysis shutdown incomplete", "error", err)
	}
}

// exitError maps a stdio server's terminal error to the command result. A
// clean exit after shutdown is success.
func exitError(err error) error {
	switch {
	case err == nil, errors.Is(err, jsonrpc.ErrExit), errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, jsonrpc.ErrExitWithoutShutdown):
		return fmt.Errorf("host exited without shutdown")
	default:
		return err
	}
}
