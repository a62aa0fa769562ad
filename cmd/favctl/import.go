package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"atelier/internal/client"
	favSvc "atelier/internal/domain/services/favorites"
)

func newImportCmd() *cobra.Command {
	var landingID string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a previously exported subtree",
		Long:  "Import the nodes of an export file as a single all-or-nothing batch. Exported ids become temp ids, so parent links inside the file are preserved while the server assigns fresh ids.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			var file exportFile
			if err := json.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}
			if len(file.Nodes) == 0 {
				return fmt.Errorf("%s contains no nodes", args[0])
			}

			req := &client.ImportRequest{Items: make([]favSvc.ImportItem, len(file.Nodes))}
			if landingID != "" {
				req.LandingFolderID = &landingID
			}
			for i, n := range file.Nodes {
				item := favSvc.ImportItem{
					TempID: n.ID,
					Name:   n.Name,
					Kind:   n.Kind,
					Target: n.Target,
				}
				if n.ParentID != nil {
					parent := *n.ParentID
					item.ParentTempID = &parent
				}
				req.Items[i] = item
			}

			var mapping map[string]string
			err = a.issue(cmd.Context(), "import", func(ctx context.Context) error {
				var err error
				mapping, err = a.api.ImportBatch(ctx, req, uuid.NewString())
				return err
			})
			if err != nil {
				return err
			}

			cmd.Printf("imported %d nodes\n", len(mapping))
			return nil
		},
	}

	cmd.Flags().StringVar(&landingID, "landing", "", "folder to import under (default: root)")
	return cmd
}
