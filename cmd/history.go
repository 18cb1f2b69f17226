package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/keepster-cli/internal/adapters/render/summary"
)

func newHistoryCmd(state *rootState) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show finished review sessions, newest first",
		RunE: state.withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			sessions, err := a.catalog.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}

			failed, err := a.deadLetters.List(cmd.Context())
			if err != nil {
				a.logger.Warn("list failed delete batches", "error", err)
			}

			rendered, err := a.summaryRenderer(sessions, summary.RenderOptions{
				Now:             a.now(),
				PendingFailures: len(failed),
			})
			if err != nil {
				return fmt.Errorf("render history: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		}),
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of sessions to show")
	return cmd
}
