package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	models "atelier/internal/domain/models/favorites"
)

// exportFile is the on-disk format of an exported subtree. The node list is
// self-contained: the chosen subtree root carries a nil parent.
type exportFile struct {
	Nodes []models.Node `json:"nodes"`
}

func newExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a subtree as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current

			var nodes []models.Node
			err := a.issue(cmd.Context(), "export", func(ctx context.Context) error {
				var err error
				nodes, err = a.api.ExportSubtree(ctx, args[0])
				return err
			})
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(exportFile{Nodes: nodes}, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding export: %w", err)
			}
			data = append(data, '\n')

			if outPath == "" {
				cmd.Print(string(data))
				return nil
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}
			cmd.Printf("exported %d nodes to %s\n", len(nodes), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to file instead of stdout")
	return cmd
}
