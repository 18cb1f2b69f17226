package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCatalogCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local photo catalog",
	}

	cmd.AddCommand(
		newCatalogImportCmd(state),
		newCatalogStatsCmd(state),
	)

	return cmd
}

func newCatalogImportCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Add the images under a directory to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: state.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve import directory: %w", err)
			}

			result, err := runImport(cmd.Context(), cmd.ErrOrStderr(), root, a.catalog)
			if err != nil {
				return fmt.Errorf("import %s: %w", root, err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %s new photos (%s scanned, %s already cataloged, %s unreadable)\n",
				humanize.Comma(int64(result.Added)),
				humanize.Comma(int64(result.Scanned)),
				humanize.Comma(int64(result.Existing)),
				humanize.Comma(int64(result.Invalid)),
			)
			return err
		}),
	}
}

func newCatalogStatsCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog totals",
		RunE: state.withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			stats, err := a.catalog.Stats(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]string{
				{"photos", humanize.Comma(int64(stats.Items))},
				{"size", humanize.Bytes(uint64(stats.Bytes))},
				{"in a collection", humanize.Comma(int64(stats.Classified))},
				{"left to review", humanize.Comma(int64(stats.Unclassified()))},
				{"deleted", humanize.Comma(int64(stats.Deleted))},
				{"collections", strconv.Itoa(stats.Collections)},
				{"sessions", strconv.Itoa(stats.Sessions)},
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", a.catalog.Path(),
				renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
			return err
		}),
	}
}
