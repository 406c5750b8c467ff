package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/opencode-ai/lintwatch/internal/config"
	"github.com/opencode-ai/lintwatch/internal/version"
	"github.com/spf13/cobra"
)

// errProblemsFound makes the process exit non-zero without an error being
// logged as a failure of lintwatch itself.
var errProblemsFound = errors.New("problems found")

var rootCmd = &cobra.Command{
	Use:   "lintwatch",
	Short: "Run a static analyzer on every save and publish its diagnostics",
	Long: `lintwatch tracks which documents an editor host has open, runs an external
analyzer (jshint, eslint) each time one is saved and keeps the host's
diagnostics list in step with the latest results. Closing a document clears
its diagnostics.`,
	Example: `
  # Serve an editor host over stdio
  lintwatch serve

  # Run as a language server
  lintwatch lsp

  # Watch a directory and print diagnostics as files change
  lintwatch watch ./src

  # Analyze files once and print a report
  lintwatch check src/app.js -f json

  # Switch the analyzer and install it next to the binary
  lintwatch use eslint && lintwatch install

  # Run with debug logging in a specific directory
  lintwatch -d -c /path/to/project watch
  `,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if versionRequested(cmd) {
			return nil
		}
		_, err := loadConfig(cmd)
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionRequested(cmd) {
			fmt.Println(version.Version)
			return nil
		}
		return cmd.Help()
	},
}

func versionRequested(cmd *cobra.Command) bool {
	f := cmd.Flags().Lookup("version")
	return f != nil && f.Changed
}

// loadConfig applies --cwd and loads the configuration for it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	cwd, _ := cmd.Flags().GetString("cwd")

	if cwd != "" {
		if err := os.Chdir(cwd); err != nil {
			return nil, fmt.Errorf("failed to change directory: %v", err)
		}
	}
	c, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %v", err)
	}
	return config.Load(c, debug)
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.Flags().BoolP("version", "v", false, "Version")

	rootCmd.AddCommand(serveCmd, lspCmd, watchCmd, checkCmd, installCmd, useCmd)
}
