package cmd

import (
	"fmt"
	"io"

	"github.com/opencode-ai/lintwatch/internal/config"
	"github.com/opencode-ai/lintwatch/internal/format"
	"github.com/opencode-ai/lintwatch/internal/watch"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <file|dir>...",
	Short: "Analyze files once and print a report",
	Long: `Runs the analyzer on each file and prints the findings. Directories are
expanded with the watch include and exclude globs. Exits non-zero when any
file has problems or the analyzer fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		outputFormat, _ := cmd.Flags().GetString("output-format")
		maxPerFile, _ := cmd.Flags().GetInt("max")

		f, err := format.Parse(outputFormat)
		if err != nil {
			return fmt.Errorf("invalid format option: %s\n%s", outputFormat, format.GetHelpText())
		}

		paths, err := watch.Expand(args, cfg.Watch.Include, cfg.Watch.Exclude)
		if err != nil {
			return err
		}

		// nothing is published, the report is the only output
		discard := format.NewConsole(io.Discard)
		p, err := newPipeline(cmd.Context(), cfg, host{sink: discard, reporter: discard})
		if err != nil {
			return err
		}
		defer p.shutdown()

		results := p.app.Check(cmd.Context(), paths)
		if err := format.Write(cmd.OutOrStdout(), f, p.invoker.Name(), results, maxPerFile); err != nil {
			return err
		}
		if !format.Summarize(results).Clean() {
			return errProblemsFound
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringP("output-format", "f", format.Text.String(),
		"Output format (text, json, yaml)")
	checkCmd.Flags().Int("max", format.DefaultMaxPerFile, "Maximum diagnostics printed per file in text output")

	checkCmd.RegisterFlagCompletionFunc("output-format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return format.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}
