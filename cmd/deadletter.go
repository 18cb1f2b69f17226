package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newDeadLetterCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deadletter",
		Aliases: []string{"failed"},
		Short:   "Inspect and retry delete batches that failed",
	}

	cmd.AddCommand(
		newDeadLetterListCmd(state),
		newDeadLetterRetryCmd(state),
	)

	return cmd
}

func newDeadLetterListCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List failed delete batches",
		RunE: state.withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			batches, err := a.deadLetterService().List(cmd.Context())
			if err != nil {
				return err
			}
			if len(batches) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No failed delete batches.")
				return err
			}

			now := a.now()
			rows := make([][]string, 0, len(batches))
			for _, batch := range batches {
				rows = append(rows, []string{
					batch.ID,
					humanize.RelTime(batch.FailedAt, now, "ago", "from now"),
					humanize.Comma(int64(len(batch.ItemIDs))),
					truncate(batch.Error, 60),
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Batch", "Failed", "Photos", "Error"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return err
		}),
	}
}

func newDeadLetterRetryCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [batch-id...]",
		Short: "Send failed delete batches again; all of them when no id is given",
		RunE: state.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			result, err := a.deadLetterService().Retry(cmd.Context(), args...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "retried %d batch(es), %d still failing\n", result.Retried, len(result.Failed)); err != nil {
				return err
			}
			for _, batch := range result.Failed {
				if _, err := fmt.Fprintf(out, "  %s: %s\n", batch.ID, batch.Error); err != nil {
					return err
				}
			}
			if len(result.Failed) > 0 {
				return fmt.Errorf("%d delete batch(es) failed again", len(result.Failed))
			}
			return nil
		}),
	}
}

func truncate(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
