package favorites

import (
	"context"
	"errors"
	"fmt"

	"atelier/internal/domain"
	models "atelier/internal/domain/models/favorites"
)

// ExportSubtree returns the flat node set of the subtree rooted at nodeID.
// A non-root node is re-rooted: its copy in the result carries a nil parent
// so the export is self-contained. Exporting the root returns the root's
// children as a forest of top-level subtrees, without the root row itself.
func (s *treeService) ExportSubtree(ctx context.Context, ownerID, nodeID string) ([]models.Node, error) {
	node, err := s.nodeRepo.GetByID(ctx, nodeID, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("export node %s: %w", nodeID, domain.ErrNotFound)
		}
		return nil, err
	}

	subtree, err := s.collectSubtree(ctx, node)
	if err != nil {
		return nil, err
	}

	if node.IsRoot() {
		// Drop the root row and detach its direct children.
		forest := make([]models.Node, 0, len(subtree)-1)
		for i := 1; i < len(subtree); i++ {
			n := subtree[i]
			if n.ParentID != nil && *n.ParentID == node.ID {
				n.ParentID = nil
			}
			forest = append(forest, n)
		}
		s.logger.Info("tree exported", "owner_id", ownerID, "nodes", len(forest))
		return forest, nil
	}

	subtree[0].ParentID = nil

	s.logger.Info("subtree exported",
		"root_id", nodeID,
		"owner_id", ownerID,
		"nodes", len(subtree),
	)

	return subtree, nil
}
