package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bnema/keepster-cli/internal/domain"
)

func newCollectionsCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"collection"},
		Short:   "List and edit collections",
	}

	cmd.AddCommand(
		newCollectionsListCmd(state),
		newCollectionsCreateCmd(state),
		newCollectionsAddCmd(state),
	)

	return cmd
}

func newCollectionsListCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections, recently used first",
		RunE: state.withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			service := a.collectionService(nil)
			collections, err := service.OrderedCollections(cmd.Context())
			if err != nil {
				return err
			}
			if len(collections) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No collections yet.")
				return err
			}

			recent := make(map[domain.CollectionID]bool)
			for _, id := range service.RecentCollections(cmd.Context()) {
				recent[id] = true
			}

			rows := make([][]string, 0, len(collections))
			for _, collection := range collections {
				marker := ""
				if recent[collection.ID] {
					marker = "*"
				}
				rows = append(rows, []string{
					marker,
					collection.DisplayTitle(),
					string(collection.ID),
					humanize.Comma(int64(collection.ItemCount)),
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"", "Title", "ID", "Photos"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return err
		}),
	}
}

func newCollectionsCreateCmd(state *rootState) *cobra.Command {
	var itemID string

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a collection, optionally filing a photo into it",
		Args:  cobra.MinimumNArgs(1),
		RunE: state.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			var item *domain.ItemID
			if id := strings.TrimSpace(itemID); id != "" {
				itemRef := domain.ItemID(id)
				item = &itemRef
			}

			collection, err := a.collectionService(nil).CreateCollection(cmd.Context(), strings.Join(args, " "), item)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", collection.DisplayTitle(), collection.ID)
			return err
		}),
	}

	cmd.Flags().StringVar(&itemID, "item", "", "Photo id to file into the new collection")
	return cmd
}

func newCollectionsAddCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "add <item-id> <collection-id>",
		Short: "File a photo into a collection",
		Args:  cobra.ExactArgs(2),
		RunE: state.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			item := domain.ItemID(args[0])
			collection := domain.CollectionID(args[1])
			if err := a.collectionService(nil).AddToCollection(cmd.Context(), item, collection); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s\n", item, collection)
			return err
		}),
	}
}
