package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/bnema/keepster-cli/internal/config"
)

var errAppNotWired = errors.New("command needs the catalog but the application is not wired")

// rootState carries what the persistent hooks load for subcommands.
type rootState struct {
	configPath string
	envFile    string

	loaded *config.Loaded
}

func NewRootCmd() *cobra.Command {
	state := &rootState{}

	rootCmd := &cobra.Command{
		Use:   "keepster",
		Short: "Triage a photo library one picture at a time",
		Long: "keepster walks the photos of a library that are not yet in any collection, " +
			"newest first, and lets you keep, delete (with a short undo window) or skip each one.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadEnvFiles(state.envFile); err != nil {
				return err
			}
			loaded, err := config.Load(state.configPath)
			if err != nil {
				return err
			}
			state.loaded = loaded
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&state.configPath, "config", "", "Path to config.toml (default ~/.config/keepster/config.toml)")
	rootCmd.PersistentFlags().StringVar(&state.envFile, "env-file", ".env", "Environment file loaded before the config")

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(state),
		newCatalogCmd(state),
		newCollectionsCmd(state),
		newReviewCmd(state),
		newHistoryCmd(state),
		newDeadLetterCmd(state),
	)

	return rootCmd
}

// withApp wires the application for one command run and releases it
// afterwards, including when run fails. Commands that only touch the config
// file never open the catalog.
func (s *rootState) withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if s.loaded == nil {
			return errAppNotWired
		}
		a, err := wireApp(cmd.Context(), s.loaded, wireOptions{LogOutput: cmd.ErrOrStderr()})
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, a.Close(context.WithoutCancel(cmd.Context())))
		}()
		return run(cmd, args, a)
	}
}
