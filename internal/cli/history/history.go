// Package history implements the 'firmscope history' command family over
// the local report database.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/firmscope/internal/cli/helpers"
	"github.com/coral-mesh/firmscope/internal/constants"
	"github.com/coral-mesh/firmscope/internal/report"
	"github.com/coral-mesh/firmscope/internal/safe"
	"github.com/coral-mesh/firmscope/internal/store"
)

// row is the table view of a stored analysis.
type row struct {
	ID           string `header:"ID"`
	FileName     string `header:"FILE"`
	Size         int64  `header:"SIZE"`
	Container    string `header:"CONTAINER"`
	Architecture string `header:"ARCH"`
	Hash         string `header:"HASH"`
	Age          string `header:"AGE"`
}

var listFormats = []helpers.OutputFormat{
	helpers.FormatTable,
	helpers.FormatJSON,
	helpers.FormatYAML,
	helpers.FormatCSV,
}

// NewHistoryCmd creates the history command and its subcommands.
func NewHistoryCmd() *cobra.Command {
	var (
		limit  int
		file   string
		hash   string
		since  string
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List analyses kept in the local database",
		Long: `List analyses saved with 'firmscope analyze --store', newest first.

The database lives in the configuration directory (~/.firmscope by default,
or store.path in the config file).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, listFormats); err != nil {
				return err
			}
			sinceTime, err := helpers.ParseSince(since, time.Now())
			if err != nil {
				return err
			}

			rt, err := helpers.Setup(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			st, err := store.OpenReadOnly(rt.Config.Store.Path, rt.Logger)
			if errors.Is(err, store.ErrNoDatabase) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No analyses stored yet. Run 'firmscope analyze --store <file>'.")
				return nil
			}
			if err != nil {
				return err
			}
			defer safe.Close(st, rt.Logger, "Failed to close store")

			ctx, cancel := storeContext(cmd)
			defer cancel()

			entries, err := st.List(ctx, store.Filter{
				Limit:      limit,
				FileName:   file,
				HashPrefix: hash,
				Since:      sinceTime,
			})
			if err != nil {
				return err
			}

			return printEntries(cmd.OutOrStdout(), entries, helpers.OutputFormat(format), time.Now())
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", constants.DefaultHistoryLimit, "Maximum number of analyses to list (0 for all)")
	cmd.Flags().StringVar(&file, "file", "", "Only list analyses of this file name")
	cmd.Flags().StringVar(&hash, "hash", "", "Only list analyses whose content hash starts with this prefix")
	cmd.Flags().StringVar(&since, "since", "", "Only list analyses newer than a duration (24h) or date")
	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, listFormats)

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newRemoveCmd())

	return cmd
}

func printEntries(w io.Writer, entries []store.Entry, format helpers.OutputFormat, now time.Time) error {
	if format == helpers.FormatTable && len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No matching analyses.")
		return err
	}

	formatter, err := helpers.NewFormatter(format)
	if err != nil {
		return err
	}

	switch format {
	case helpers.FormatJSON, helpers.FormatYAML:
		return formatter.Format(entries, w)
	}

	rows := make([]row, len(entries))
	for i, e := range entries {
		rows[i] = row{
			ID:           e.ID,
			FileName:     e.FileName,
			Size:         e.FileSize,
			Container:    e.Container,
			Architecture: e.Architecture,
			Hash:         e.FileHash,
			Age:          helpers.Age(e.CreatedAt, now),
		}
	}
	return formatter.Format(rows, w)
}

func newShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, []helpers.OutputFormat{helpers.FormatJSON, helpers.FormatYAML}); err != nil {
				return err
			}

			rt, err := helpers.Setup(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			st, err := store.OpenReadOnly(rt.Config.Store.Path, rt.Logger)
			if err != nil {
				return err
			}
			defer safe.Close(st, rt.Logger, "Failed to close store")

			ctx, cancel := storeContext(cmd)
			defer cancel()

			_, rep, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}

			data, err := report.Marshal(rep, report.Format(format))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatJSON, []helpers.OutputFormat{
		helpers.FormatJSON,
		helpers.FormatYAML,
	})

	return cmd
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a stored report",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := helpers.Setup(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			st, err := store.Open(rt.Config.Store.Path, rt.Logger)
			if err != nil {
				return err
			}
			defer safe.Close(st, rt.Logger, "Failed to close store")

			ctx, cancel := storeContext(cmd)
			defer cancel()

			if err := st.Delete(ctx, args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return err
		},
	}
}

func storeContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), constants.DefaultStoreTimeout)
}
