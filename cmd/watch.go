package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/opencode-ai/lintwatch/internal/app"
	"github.com/opencode-ai/lintwatch/internal/config"
	"github.com/opencode-ai/lintwatch/internal/format"
	"github.com/opencode-ai/lintwatch/internal/logging"
	"github.com/opencode-ai/lintwatch/internal/pubsub"
	"github.com/opencode-ai/lintwatch/internal/watch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and print diagnostics as files change",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		root := cfg.WorkingDir
		if len(args) == 1 {
			root = args[0]
		}
		noScan, _ := cmd.Flags().GetBool("no-scan")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		console := format.NewConsole(cmd.OutOrStdout())
		p, err := newPipeline(ctx, cfg, host{sink: console, reporter: console})
		if err != nil {
			return err
		}
		defer p.shutdown()

		w, err := watch.New(watch.Options{
			Root:        root,
			Include:     cfg.Watch.Include,
			Exclude:     cfg.Watch.Exclude,
			Debounce:    cfg.Watch.DebounceDuration(),
			ScanOnStart: !noScan,
		})
		if err != nil {
			return err
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		g, gctx := errgroup.WithContext(runCtx)
		g.Go(func() error {
			defer logging.RecoverPanic("watcher", nil)
			defer cancel()
			logging.Info("watching", "root", w.Root(), "analyzer", p.invoker.Name())
			return w.Run(gctx, p.events(w))
		})
		g.Go(func() error {
			defer logging.RecoverPanic("analysis-events", nil)
			logAnalysisEvents(p.app.Subscribe(gctx))
			return nil
		})
		return g.Wait()
	},
}

func logAnalysisEvents(ch <-chan pubsub.Event[app.AnalysisEvent]) {
	for ev := range ch {
		e := ev.Payload
		switch e.Status {
		case app.AnalysisFinished:
			logging.Debug("analysis finished", "path", e.Path, "run", e.RunID, "diagnostics", e.Diagnostics, "duration", e.Duration)
		case app.AnalysisFailed:
			logging.Warn("analysis failed", "path", e.Path, "run", e.RunID, "error", e.Error)
		case app.AnalysisDiscarded:
			logging.Debug("stale analysis discarded", "path", e.Path, "run", e.RunID)
		}
	}
}

func init() {
	watchCmd.Flags().Bool("no-scan", false, "Do not analyze existing files on start")
}
