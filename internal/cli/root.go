// Package cli wires the firmscope command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/firmscope/internal/cli/analyze"
	configcmd "github.com/coral-mesh/firmscope/internal/cli/config"
	"github.com/coral-mesh/firmscope/internal/cli/helpers"
	"github.com/coral-mesh/firmscope/internal/cli/history"
	"github.com/coral-mesh/firmscope/internal/report"
	"github.com/coral-mesh/firmscope/pkg/version"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "firmscope",
		Short: "firmscope - static firmware analyzer",
		Long: `Inspect untrusted firmware and binary images without executing them.

firmscope detects the container format and architecture, parses ELF and PE
headers, classifies content by entropy, scans for compression signatures,
extracts printable strings and writes everything to one report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(helpers.ConfigFlag, "", "Config file (default ~/.firmscope/config.yaml)")
	rootCmd.PersistentFlags().String(helpers.LogLevelFlag, "info", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(analyze.NewAnalyzeCmd())
	rootCmd.AddCommand(history.NewHistoryCmd())
	rootCmd.AddCommand(configcmd.NewConfigCmd())
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the analysis report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := report.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "firmscope version %s\n", info.Version)
			_, _ = fmt.Fprintf(out, "Git commit: %s\n", info.GitCommit)
			_, _ = fmt.Fprintf(out, "Build date: %s\n", info.BuildDate)
			_, _ = fmt.Fprintf(out, "Go version: %s\n", info.GoVersion)
		},
	}
}

// Execute runs the root command. Canceling ctx interrupts a running analysis.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
