package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"atelier/internal/client/mirror"
	models "atelier/internal/domain/models/favorites"
)

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the whole favorites tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := current

			var nodes []models.Node
			err := a.issue(cmd.Context(), "fetch tree", func(ctx context.Context) error {
				var err error
				nodes, err = a.api.FetchTree(ctx)
				return err
			})
			if err != nil {
				return err
			}

			m := mirror.New()
			m.Reset(nodes)
			for _, root := range m.Tree() {
				printTree(cmd, root, 0)
			}
			return nil
		},
	}
}

func printTree(cmd *cobra.Command, node *mirror.TreeNode, depth int) {
	indent := strings.Repeat("  ", depth)
	label := node.Name
	if node.Kind == models.KindReference {
		label = fmt.Sprintf("%s -> %s", node.Name, node.Target)
	}
	cmd.Printf("%s%s  [%s]\n", indent, label, node.ID)
	for _, child := range node.Children {
		printTree(cmd, child, depth+1)
	}
}
