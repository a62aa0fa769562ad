package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"atelier/internal/domain"
	models "atelier/internal/domain/models/favorites"
	"atelier/internal/domain/repositories"
	favRepo "atelier/internal/domain/repositories/favorites"
	favSvc "atelier/internal/domain/services/favorites"
)

// treeService implements the TreeService interface. It is stateless between
// calls; the store's transactions are the only serialization point, so any
// number of operations may run concurrently for the same owner.
type treeService struct {
	nodeRepo  favRepo.NodeRepository
	idemRepo  favRepo.IdempotencyRepository
	txManager repositories.TransactionManager
	resolver  *BatchResolver
	maxBatch  int
	logger    *slog.Logger
}

// NewTreeService creates a new tree service. maxBatch caps import batch
// sizes to bound how long the import transaction stays open.
func NewTreeService(
	nodeRepo favRepo.NodeRepository,
	idemRepo favRepo.IdempotencyRepository,
	txManager repositories.TransactionManager,
	maxBatch int,
	logger *slog.Logger,
) favSvc.TreeService {
	return &treeService{
		nodeRepo:  nodeRepo,
		idemRepo:  idemRepo,
		txManager: txManager,
		resolver:  NewBatchResolver(nodeRepo, logger),
		maxBatch:  maxBatch,
		logger:    logger,
	}
}

// GetTree returns the owner's full flat node set, creating the root folder
// on first access.
func (s *treeService) GetTree(ctx context.Context, ownerID string) ([]models.Node, error) {
	if _, err := s.ensureRoot(ctx, ownerID); err != nil {
		return nil, err
	}

	nodes, err := s.nodeRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tree: %w", err)
	}

	return nodes, nil
}

// GetNode fetches a single node scoped to its owner.
func (s *treeService) GetNode(ctx context.Context, ownerID, nodeID string) (*models.Node, error) {
	return s.nodeRepo.GetByID(ctx, nodeID, ownerID)
}

// AddFolder creates a single folder node. A nil parent targets the root.
func (s *treeService) AddFolder(ctx context.Context, req *favSvc.AddFolderRequest) (*models.Node, error) {
	if err := validateAddFolder(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	parentID, err := s.resolveParent(ctx, req.OwnerID, req.ParentID)
	if err != nil {
		return nil, err
	}

	var node models.Node
	replayed := false

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if done, err := s.replay(ctx, req.OwnerID, req.IdempotencyKey, &node); err != nil {
			return err
		} else if done {
			replayed = true
			return nil
		}

		created := models.NewFolder(req.OwnerID, &parentID, req.Name)
		if err := s.nodeRepo.Create(ctx, created); err != nil {
			return err
		}
		node = *created

		return s.record(ctx, req.OwnerID, req.IdempotencyKey, node)
	})
	if err != nil {
		return nil, err
	}
	node.OwnerID = req.OwnerID

	s.logger.Info("folder created",
		"id", node.ID,
		"name", node.Name,
		"owner_id", req.OwnerID,
		"parent_id", parentID,
		"replayed", replayed,
	)

	return &node, nil
}

// AddReference creates a single file-reference node. The target is stored
// opaquely; the tree never dereferences it.
func (s *treeService) AddReference(ctx context.Context, req *favSvc.AddReferenceRequest) (*models.Node, error) {
	if err := validateAddReference(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	parentID, err := s.resolveParent(ctx, req.OwnerID, req.ParentID)
	if err != nil {
		return nil, err
	}

	var node models.Node
	replayed := false

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if done, err := s.replay(ctx, req.OwnerID, req.IdempotencyKey, &node); err != nil {
			return err
		} else if done {
			replayed = true
			return nil
		}

		created := models.NewReference(req.OwnerID, &parentID, req.Name, req.Target)
		if err := s.nodeRepo.Create(ctx, created); err != nil {
			return err
		}
		node = *created

		return s.record(ctx, req.OwnerID, req.IdempotencyKey, node)
	})
	if err != nil {
		return nil, err
	}
	node.OwnerID = req.OwnerID

	s.logger.Info("favorite created",
		"id", node.ID,
		"name", node.Name,
		"owner_id", req.OwnerID,
		"parent_id", parentID,
		"replayed", replayed,
	)

	return &node, nil
}

// DeleteSubtree removes a node and all of its descendants in one
// transaction and returns every removed node. Deleting the root folder is
// rejected; the root is the owner's tree anchor and is recreated lazily.
func (s *treeService) DeleteSubtree(ctx context.Context, ownerID, nodeID string) ([]models.RemovedNode, error) {
	var removed []models.RemovedNode

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		node, err := s.nodeRepo.GetByID(ctx, nodeID, ownerID)
		if err != nil {
			return err
		}
		if node.IsRoot() {
			return fmt.Errorf("%w: the root folder cannot be deleted", domain.ErrValidation)
		}

		subtree, err := s.collectSubtree(ctx, node)
		if err != nil {
			return err
		}

		ids := make([]string, len(subtree))
		removed = make([]models.RemovedNode, len(subtree))
		for i := range subtree {
			ids[i] = subtree[i].ID
			removed[i] = models.RemovedNode{ID: subtree[i].ID, Name: subtree[i].Name}
		}

		count, err := s.nodeRepo.DeleteByIDs(ctx, ids, ownerID)
		if err != nil {
			return err
		}
		if count != int64(len(ids)) {
			// A concurrent mutation changed the subtree under us; roll
			// back rather than leave a partially removed tree.
			return fmt.Errorf("delete subtree: expected %d nodes, removed %d", len(ids), count)
		}

		return nil
	})
	if err != nil {
		removed = nil
		return nil, err
	}

	s.logger.Info("subtree deleted",
		"root_id", nodeID,
		"owner_id", ownerID,
		"removed", len(removed),
	)

	return removed, nil
}

// ImportBatch resolves and creates the whole batch all-or-nothing, returning
// the temp_id -> id resolution map. Items without an explicit parent land
// under req.LandingFolderID, or the owner's root when that is nil.
func (s *treeService) ImportBatch(ctx context.Context, req *favSvc.ImportBatchRequest) (map[string]string, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: import batch is empty", domain.ErrValidation)
	}
	if len(req.Items) > s.maxBatch {
		return nil, fmt.Errorf("%w: import batch of %d exceeds the maximum of %d", domain.ErrValidation, len(req.Items), s.maxBatch)
	}
	if err := s.resolver.ValidateBatch(req.Items); err != nil {
		return nil, err
	}

	landingID, err := s.resolveLanding(ctx, req.OwnerID, req.LandingFolderID)
	if err != nil {
		return nil, err
	}

	var mapping map[string]string
	replayed := false

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if done, err := s.replay(ctx, req.OwnerID, req.IdempotencyKey, &mapping); err != nil {
			return err
		} else if done {
			replayed = true
			return nil
		}

		mapping, err = s.resolver.Resolve(ctx, req.OwnerID, landingID, req.Items)
		if err != nil {
			return err
		}

		return s.record(ctx, req.OwnerID, req.IdempotencyKey, mapping)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch imported",
		"owner_id", req.OwnerID,
		"landing_id", landingID,
		"items", len(req.Items),
		"replayed", replayed,
	)

	return mapping, nil
}

// resolveParent maps a nil parent to the owner's root, bootstrapping the
// root on first use. Existence and kind of an explicit parent are checked by
// the repository inside the mutation's own transaction.
func (s *treeService) resolveParent(ctx context.Context, ownerID string, parentID *string) (string, error) {
	if parentID != nil {
		return *parentID, nil
	}

	root, err := s.ensureRoot(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return root.ID, nil
}

// resolveLanding validates the landing folder for an import, defaulting to
// the root.
func (s *treeService) resolveLanding(ctx context.Context, ownerID string, landingID *string) (string, error) {
	if landingID == nil {
		root, err := s.ensureRoot(ctx, ownerID)
		if err != nil {
			return "", err
		}
		return root.ID, nil
	}

	landing, err := s.nodeRepo.GetByID(ctx, *landingID, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("landing folder %s: %w", *landingID, domain.ErrNotFound)
		}
		return "", err
	}
	if !landing.IsFolder() {
		return "", fmt.Errorf("%w: landing node %s is not a folder", domain.ErrValidation, landing.ID)
	}

	return landing.ID, nil
}

// ensureRoot returns the owner's root folder, creating it on first access.
// A concurrent bootstrap loses against the single-root unique index and
// falls back to reading the winner's row.
func (s *treeService) ensureRoot(ctx context.Context, ownerID string) (*models.Node, error) {
	root, err := s.nodeRepo.GetRoot(ctx, ownerID)
	if err == nil {
		return root, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	created := models.NewFolder(ownerID, nil, models.RootName)
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		return s.nodeRepo.Create(ctx, created)
	})
	if err == nil {
		s.logger.Info("root folder created", "owner_id", ownerID, "id", created.ID)
		return created, nil
	}
	if errors.Is(err, domain.ErrConflict) {
		return s.nodeRepo.GetRoot(ctx, ownerID)
	}

	return nil, err
}

// collectSubtree walks the subtree level by level with repeated child
// queries. Fine at favorites scale; a recursive CTE would replace this if
// trees grow large.
func (s *treeService) collectSubtree(ctx context.Context, node *models.Node) ([]models.Node, error) {
	subtree := []models.Node{*node}
	frontier := []string{node.ID}

	for len(frontier) > 0 {
		var next []string
		for _, id := range frontier {
			children, err := s.nodeRepo.ListChildren(ctx, id, node.OwnerID)
			if err != nil {
				return nil, fmt.Errorf("list children of %s: %w", id, err)
			}
			for i := range children {
				subtree = append(subtree, children[i])
				if children[i].IsFolder() {
					next = append(next, children[i].ID)
				}
			}
		}
		frontier = next
	}

	return subtree, nil
}

// replay loads a previously recorded response for the idempotency key into
// out. Reports true when the call is a replay and out is populated.
func (s *treeService) replay(ctx context.Context, ownerID, key string, out any) (bool, error) {
	if key == "" {
		return false, nil
	}

	stored, err := s.idemRepo.Get(ctx, ownerID, key)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(stored, out); err != nil {
		return false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return true, nil
}

// record stores the response for the idempotency key inside the current
// transaction, so a rollback also discards the record.
func (s *treeService) record(ctx context.Context, ownerID, key string, response any) error {
	if key == "" {
		return nil
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}

	return s.idemRepo.Put(ctx, ownerID, key, payload)
}
