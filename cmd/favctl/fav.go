package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"atelier/internal/client"
	models "atelier/internal/domain/models/favorites"
)

// maxConcurrentAdds bounds how many creations run in parallel.
const maxConcurrentAdds = 4

func newFavCmd() *cobra.Command {
	var parentID string

	cmd := &cobra.Command{
		Use:   "fav <name> <target> [<name> <target> ...]",
		Short: "Add one or more file references",
		Long:  "Add file references pointing at artifact locators. Pairs of name and target may be given; they are created concurrently.",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expected name/target pairs, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(maxConcurrentAdds)

			created := make([]*models.Node, len(args)/2)
			for i := 0; i < len(args); i += 2 {
				req := &client.CreateNodeRequest{
					Name:   args[i],
					Kind:   models.KindReference,
					Target: args[i+1],
				}
				if parentID != "" {
					req.ParentID = &parentID
				}

				slot := i / 2
				g.Go(func() error {
					return a.issue(ctx, fmt.Sprintf("add %s", req.Name), func(ctx context.Context) error {
						node, err := a.api.CreateNode(ctx, req, uuid.NewString())
						if err != nil {
							return err
						}
						created[slot] = node
						return nil
					})
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for _, node := range created {
				cmd.Printf("added %s -> %s  [%s]\n", node.Name, node.Target, node.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&parentID, "parent", "", "parent folder id (default: root)")
	return cmd
}
