package main

import (
	"context"

	"github.com/spf13/cobra"

	models "atelier/internal/domain/models/favorites"
)

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a node and its whole subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current

			var removed []models.RemovedNode
			err := a.issue(cmd.Context(), "delete", func(ctx context.Context) error {
				var err error
				removed, err = a.api.DeleteNode(ctx, args[0])
				return err
			})
			if err != nil {
				return err
			}

			if len(removed) == 0 {
				cmd.Println("nothing to delete")
				return nil
			}
			for _, r := range removed {
				cmd.Printf("removed %s  [%s]\n", r.Name, r.ID)
			}
			return nil
		},
	}
}
