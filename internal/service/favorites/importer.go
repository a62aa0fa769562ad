package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"atelier/internal/domain"
	models "atelier/internal/domain/models/favorites"
	favRepo "atelier/internal/domain/repositories/favorites"
	favSvc "atelier/internal/domain/services/favorites"
)

// BatchResolver turns a flat list of import items that may reference each
// other through temp ids into real nodes with resolved parents. It supports
// forward references: an item's parent may appear later in the same batch.
//
// Resolution is all-or-nothing. The caller runs Resolve inside one
// transaction; any error (validation aside, which fires before the first
// insert) rolls back every node created so far.
type BatchResolver struct {
	nodeRepo favRepo.NodeRepository
	logger   *slog.Logger
}

// NewBatchResolver creates a new batch resolver.
func NewBatchResolver(nodeRepo favRepo.NodeRepository, logger *slog.Logger) *BatchResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchResolver{
		nodeRepo: nodeRepo,
		logger:   logger,
	}
}

// ValidateBatch rejects malformed batches before any store mutation:
// duplicate temp ids, items claiming two parents, missing names or targets.
func (r *BatchResolver) ValidateBatch(items []favSvc.ImportItem) error {
	seen := make(map[string]struct{}, len(items))
	for i := range items {
		if err := validateImportItem(&items[i]); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		if _, dup := seen[items[i].TempID]; dup {
			return fmt.Errorf("%w: duplicate temp_id %q", domain.ErrValidation, items[i].TempID)
		}
		seen[items[i].TempID] = struct{}{}
	}
	return nil
}

// Resolve creates every item of the batch, resolving parents over multiple
// passes: an item is ready when its parent is an existing node, an already
// resolved temp id, or absent (landing folder). Blocked items are retried
// each pass; a pass that makes zero progress means a temp id missing from
// the batch or a dependency cycle, and aborts.
//
// The pass count is bounded by len(items)+1, which guarantees termination;
// every successful pass shrinks the blocked set by at least one.
//
// Returns the temp_id -> id resolution map on success.
func (r *BatchResolver) Resolve(ctx context.Context, ownerID, landingID string, items []favSvc.ImportItem) (map[string]string, error) {
	if err := r.ValidateBatch(items); err != nil {
		return nil, err
	}

	resolved := make(map[string]string, len(items))
	pending := items

	for pass := 0; len(pending) > 0; pass++ {
		if pass > len(items) {
			// Unreachable with the progress check below; kept as a hard
			// stop against pathological input.
			return nil, r.unresolvable(pending)
		}

		var blocked []favSvc.ImportItem
		progress := false

		for i := range pending {
			item := pending[i]

			parentID, ready := r.parentFor(&item, resolved, landingID)
			if !ready {
				blocked = append(blocked, item)
				continue
			}

			node, err := r.createNode(ctx, ownerID, parentID, &item)
			if err != nil {
				return nil, err
			}

			resolved[item.TempID] = node.ID
			progress = true
		}

		if len(blocked) > 0 && !progress {
			return nil, r.unresolvable(blocked)
		}

		pending = blocked
	}

	r.logger.Debug("batch resolved",
		"owner_id", ownerID,
		"items", len(items),
	)

	return resolved, nil
}

// parentFor reports the real parent id for the item, or ready=false when the
// item is blocked on a temp id not yet resolved in this batch.
func (r *BatchResolver) parentFor(item *favSvc.ImportItem, resolved map[string]string, landingID string) (string, bool) {
	switch {
	case item.ParentID != nil:
		return *item.ParentID, true
	case item.ParentTempID != nil:
		id, ok := resolved[*item.ParentTempID]
		return id, ok
	default:
		return landingID, true
	}
}

func (r *BatchResolver) createNode(ctx context.Context, ownerID, parentID string, item *favSvc.ImportItem) (*models.Node, error) {
	var node *models.Node
	if item.Kind == models.KindFolder {
		node = models.NewFolder(ownerID, &parentID, item.Name)
	} else {
		node = models.NewReference(ownerID, &parentID, item.Name, item.Target)
	}

	if err := r.nodeRepo.Create(ctx, node); err != nil {
		return nil, fmt.Errorf("import item %q: %w", item.TempID, err)
	}

	return node, nil
}

func (r *BatchResolver) unresolvable(blocked []favSvc.ImportItem) error {
	tempIDs := make([]string, 0, len(blocked))
	for i := range blocked {
		tempIDs = append(tempIDs, blocked[i].TempID)
	}
	sort.Strings(tempIDs)

	return &domain.UnresolvableError{
		Message:    fmt.Sprintf("unresolvable parent references for %d item(s): missing temp id or dependency cycle", len(blocked)),
		Unresolved: tempIDs,
	}
}
