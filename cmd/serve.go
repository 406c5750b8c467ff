package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/opencode-ai/lintwatch/internal/bridge"
	"github.com/opencode-ai/lintwatch/internal/config"
	"github.com/opencode-ai/lintwatch/internal/logging"
	"github.com/opencode-ai/lintwatch/internal/version"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an editor host over stdio",
	Long: `Reads the host's document-table notifications as Content-Length framed
JSON-RPC on stdin and answers with diagnostics list updates on stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := bridge.NewServer(os.Stdin, os.Stdout, bridge.ServerOptions{
			Name:     "lintwatch",
			Version:  version.Version,
			Provider: cfg.Provider.Name,
		})

		p, err := newPipeline(ctx, cfg, host{
			sink:      server.Sink(),
			reporter:  server,
			navigator: server,
		})
		if err != nil {
			return err
		}
		defer p.shutdown()

		logging.Info("serving editor host", "provider", cfg.Provider.Name)
		return exitError(server.Run(ctx, p.events(server.Documents())))
	},
}
