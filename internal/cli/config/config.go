// Package config implements the 'firmscope config' command family.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/firmscope/internal/cli/helpers"
	"github.com/coral-mesh/firmscope/internal/config"
	"github.com/coral-mesh/firmscope/internal/constants"
)

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect firmscope configuration",
		Long: `Inspect firmscope configuration.

Configuration priority:
  1. Command-line flags (highest)
  2. FIRMSCOPE_* environment variables
  3. Config file (--config, or ~/.firmscope/config.yaml)
  4. Built-in defaults

Environment Variables:
  FIRMSCOPE_CONFIG  Override the directory holding .firmscope (default: home)`,
	}

	cmd.AddCommand(newViewCmd())
	cmd.AddCommand(newPathCmd())
	cmd.AddCommand(newValidateCmd())

	return cmd
}

func newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := helpers.Setup(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			data, err := yaml.Marshal(rt.Config)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration directory and file paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader()
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "dir:      %s\n", loader.Dir())
			_, _ = fmt.Fprintf(out, "config:   %s\n", loader.ConfigPath())
			_, err := fmt.Fprintf(out, "database: %s/%s\n", loader.Dir(), constants.DefaultDatabaseFile)
			return err
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Long: `Load the configuration the same way 'analyze' does and report every
invalid value.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := helpers.Setup(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			err = rt.Config.Validate()

			var multi *config.MultiValidationError
			switch {
			case err == nil:
				_, err = fmt.Fprintln(out, helpers.Success("Configuration is valid"))
				return err
			case errors.As(err, &multi):
				for _, e := range multi.Errors {
					_, _ = fmt.Fprintf(out, "  %s\n", e.Error())
				}
				return fmt.Errorf("validation failed with %d errors", len(multi.Errors))
			default:
				return err
			}
		},
	}
}
