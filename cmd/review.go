package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	prommetrics "github.com/bnema/keepster-cli/internal/adapters/metrics/prometheus"
	"github.com/bnema/keepster-cli/internal/adapters/render/summary"
	"github.com/bnema/keepster-cli/internal/adapters/tui"
	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/logging"
)

type reviewOptions struct {
	collection string
	target     int
	pick       bool
	lines      bool
}

func newReviewCmd(state *rootState) *cobra.Command {
	var opts reviewOptions

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Start a review session over photos in no collection",
		Long: "review shows unclassified photos newest first. Keep, delete or skip each one; " +
			"a delete can be undone until its grace period ends. On a terminal this opens a " +
			"full-screen view, otherwise commands are read line by line from stdin " +
			"(keep, delete, skip, undo, collect, retry, finish or their first letter).",
		RunE: state.withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			return runReview(cmd, a, opts)
		}),
	}

	cmd.Flags().StringVar(&opts.collection, "collection", "", "Collection id used by the keep-in-collection action")
	cmd.Flags().IntVar(&opts.target, "target", 0, "Initial queue size (default low water + buffer)")
	cmd.Flags().BoolVar(&opts.pick, "pick", false, "Choose the collection interactively before starting")
	cmd.Flags().BoolVar(&opts.lines, "lines", false, "Read commands from stdin even on a terminal")
	return cmd
}

func runReview(cmd *cobra.Command, a *app, opts reviewOptions) error {
	ctx := cmd.Context()
	if opts.target < 0 {
		return fmt.Errorf("--target must not be negative, got %d", opts.target)
	}

	fullScreen := !opts.lines && interactive(cmd.InOrStdin(), cmd.OutOrStdout())
	logger := a.logger
	if fullScreen && a.cfg.Logging.File == "" {
		// Log lines would tear the alternate screen.
		logger = logging.Discard()
	}

	collection, err := resolveReviewCollection(ctx, a, opts, fullScreen)
	if err != nil {
		return err
	}

	if a.cfg.Metrics.Enabled {
		server, err := prommetrics.Listen(a.cfg.Metrics.Addr, a.metrics)
		if err != nil {
			return err
		}
		logger.Info("serving metrics", "addr", server.Addr())
		defer func() {
			if err := server.Shutdown(context.WithoutCancel(ctx)); err != nil {
				a.logger.Warn("stop metrics server", "error", err)
			}
		}()
	}

	engine := a.newEngine(engineOptions{Logger: logger, DisableAutoRefill: !fullScreen})
	engine.Start(ctx)

	var result domain.SessionSummary
	if fullScreen {
		result, err = tui.Run(ctx, engine, tui.Options{
			Input:           cmd.InOrStdin(),
			Output:          cmd.OutOrStdout(),
			Target:          opts.target,
			Collection:      collection.ID,
			CollectionTitle: collection.DisplayTitle(),
			Analysis:        a.analysisService(logging.Component(logger, "analysis")),
		})
	} else {
		result, err = runLineReview(ctx, engine, cmd.InOrStdin(), cmd.OutOrStdout(), lineReviewOptions{
			Target:     opts.target,
			Collection: collection,
			Now:        a.now,
		})
	}
	engine.Wait()
	if err != nil {
		return err
	}

	return printSessionSummary(cmd, a, result)
}

// resolveReviewCollection returns the zero collection when none was asked for.
func resolveReviewCollection(ctx context.Context, a *app, opts reviewOptions, fullScreen bool) (domain.Collection, error) {
	if opts.collection == "" && !opts.pick {
		return domain.Collection{}, nil
	}

	collections, err := a.collectionService(nil).OrderedCollections(ctx)
	if err != nil {
		return domain.Collection{}, err
	}

	if opts.collection != "" {
		for _, collection := range collections {
			if string(collection.ID) == opts.collection {
				return collection, nil
			}
		}
		return domain.Collection{}, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, opts.collection)
	}

	if !fullScreen {
		return domain.Collection{}, errors.New("--pick needs a terminal; pass --collection instead")
	}
	return pickCollection(ctx, collections, a.logger)
}

func pickCollection(ctx context.Context, collections []domain.Collection, logger *slog.Logger) (domain.Collection, error) {
	if len(collections) == 0 {
		logger.Info("no collections to pick from")
		return domain.Collection{}, nil
	}

	options := make([]huh.Option[string], 0, len(collections)+1)
	options = append(options, huh.NewOption("No collection", ""))
	for _, collection := range collections {
		options = append(options, huh.NewOption(collection.DisplayTitle(), string(collection.ID)))
	}

	var selected string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Collection for the keep-in-collection key").
			Options(options...).
			Value(&selected),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return domain.Collection{}, fmt.Errorf("pick collection: %w", err)
	}

	for _, collection := range collections {
		if string(collection.ID) == selected {
			return collection, nil
		}
	}
	return domain.Collection{}, nil
}

func printSessionSummary(cmd *cobra.Command, a *app, result domain.SessionSummary) error {
	failed, err := a.deadLetters.List(cmd.Context())
	if err != nil {
		a.logger.Warn("list failed delete batches", "error", err)
	}

	rendered, err := a.summaryRenderer([]domain.SessionSummary{result}, summary.RenderOptions{
		Now:             a.now(),
		Title:           "Session complete",
		PendingFailures: len(failed),
	})
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
