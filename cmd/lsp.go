package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/opencode-ai/lintwatch/internal/config"
	"github.com/opencode-ai/lintwatch/internal/logging"
	"github.com/opencode-ai/lintwatch/internal/lsp"
	"github.com/opencode-ai/lintwatch/internal/version"
	"github.com/spf13/cobra"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run as a language server over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
			Name:     "lintwatch",
			Version:  version.Version,
			Provider: cfg.Provider.Name,
		})

		// LSP clients navigate on their own, so there is no navigator.
		p, err := newPipeline(ctx, cfg, host{
			sink:     server.Sink(),
			reporter: server,
		})
		if err != nil {
			return err
		}
		defer p.shutdown()

		logging.Info("serving language server clients", "provider", cfg.Provider.Name)
		return exitError(server.Run(ctx, p.events(server)))
	},
}
