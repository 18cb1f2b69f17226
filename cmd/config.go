package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/keepster-cli/internal/config"
)

func newConfigCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	cmd.AddCommand(
		newConfigInitCmd(state),
		newConfigShowCmd(state),
	)

	return cmd
}

func newConfigInitCmd(state *rootState) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample config.toml with the defaults",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := state.loaded.Path
			if err := config.CreateSample(path, force); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.Encode(*state.loaded.Config)
			if err != nil {
				return err
			}
			source := state.loaded.Path
			if !state.loaded.Exists {
				source += " (not found, using defaults)"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", source, data)
			return err
		},
	}
}
