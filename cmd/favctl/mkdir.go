package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"atelier/internal/client"
	models "atelier/internal/domain/models/favorites"
)

func newMkdirCmd() *cobra.Command {
	var parentID string

	cmd := &cobra.Command{
		Use:   "mkdir <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current

			req := &client.CreateNodeRequest{
				Name: args[0],
				Kind: models.KindFolder,
			}
			if parentID != "" {
				req.ParentID = &parentID
			}

			var node *models.Node
			err := a.issue(cmd.Context(), "create folder", func(ctx context.Context) error {
				var err error
				node, err = a.api.CreateNode(ctx, req, uuid.NewString())
				return err
			})
			if err != nil {
				return err
			}

			cmd.Printf("created folder %s  [%s]\n", node.Name, node.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&parentID, "parent", "", "parent folder id (default: root)")
	return cmd
}
