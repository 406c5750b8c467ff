package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/opencode-ai/lintwatch/internal/analyzer"
	"github.com/opencode-ai/lintwatch/internal/config"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the configured analyzer with npm",
	Long: `Installs the configured analyzer's npm package into the analyzer install
directory, where it is found under node_modules/.bin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		resolved, err := analyzer.Resolve(cfg.Analyzer)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Installing %s into %s\n", resolved.Name, resolved.InstallDir)
		if err := analyzer.Install(cmd.Context(), resolved); err != nil {
			return err
		}

		path, _, err := analyzer.ResolveCommand(resolved)
		if err != nil {
			return fmt.Errorf("installed %s but could not find it: %w", resolved.Name, err)
		}
		if v := analyzer.ToolVersion(cmd.Context(), path); v != "" {
			fmt.Fprintf(out, "%s %s at %s\n", resolved.Name, v, path)
		} else {
			fmt.Fprintf(out, "%s at %s\n", resolved.Name, path)
		}
		return nil
	},
}

var useCmd = &cobra.Command{
	Use:   "use <analyzer>",
	Short: "Select the analyzer and save the choice to the global config",
	Args:  cobra.ExactArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return builtinNames(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.ToLower(strings.TrimSpace(args[0]))
		if !slices.Contains(builtinNames(), name) {
			return fmt.Errorf("%w: %s (known: %s)", analyzer.ErrUnknownAnalyzer, name, strings.Join(builtinNames(), ", "))
		}
		if err := config.UpdateAnalyzer(name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Using %s\n", name)
		return nil
	},
}

func builtinNames() []string {
	names := make([]string, 0, len(analyzer.BuiltinAnalyzers))
	for _, def := range analyzer.BuiltinAnalyzers {
		names = append(names, def.Name)
	}
	return names
}
