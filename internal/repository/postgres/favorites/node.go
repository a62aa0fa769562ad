package favorites

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"atelier/internal/domain"
	models "atelier/internal/domain/models/favorites"
	favRepo "atelier/internal/domain/repositories/favorites"
	"atelier/internal/repository/postgres"
)

// PostgresNodeRepository implements the NodeRepository interface.
type PostgresNodeRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewNodeRepository creates a new node repository.
func NewNodeRepository(config *postgres.RepositoryConfig) favRepo.NodeRepository {
	return &PostgresNodeRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create durably inserts the node and assigns its id. The parent is checked
// inside the same executor (and therefore the same transaction, when one is
// in the context), so a concurrent delete of the parent rolls this insert
// back rather than orphaning it.
func (r *PostgresNodeRepository) Create(ctx context.Context, node *models.Node) error {
	db := postgres.GetExecutor(ctx, r.pool)

	if node.ParentID != nil {
		parent, err := r.getByID(ctx, db, *node.ParentID, node.OwnerID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("parent %s: %w", *node.ParentID, domain.ErrNotFound)
			}
			return err
		}
		if !parent.IsFolder() {
			return fmt.Errorf("%w: parent %s is not a folder", domain.ErrValidation, parent.ID)
		}

		// Application-level duplicate guard so the caller gets the
		// conflicting node's id; the unique index remains the backstop
		// under concurrency.
		existing, err := r.getSibling(ctx, db, node)
		if err != nil {
			return err
		}
		if existing != nil {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a %s named %q already exists in this folder", kindLabel(node.Kind), node.Name),
				ResourceType: string(node.Kind),
				ResourceID:   existing.ID,
			}
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (owner_id, parent_id, name, kind, target)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, r.tables.Nodes)

	err := db.QueryRow(ctx, query,
		node.OwnerID,
		node.ParentID,
		node.Name,
		node.Kind,
		nullableTarget(node),
	).Scan(&node.ID, &node.CreatedAt, &node.UpdatedAt)

	if err != nil {
		if postgres.IsDuplicateError(err) {
			if node.ParentID == nil {
				return fmt.Errorf("owner %s already has a root: %w", node.OwnerID, domain.ErrConflict)
			}
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a %s named %q already exists in this folder", kindLabel(node.Kind), node.Name),
				ResourceType: string(node.Kind),
			}
		}
		return fmt.Errorf("create node: %w", err)
	}

	return nil
}

// GetByID retrieves a node by id, scoped to its owner.
func (r *PostgresNodeRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Node, error) {
	db := postgres.GetExecutor(ctx, r.pool)
	return r.getByID(ctx, db, id, ownerID)
}

// GetRoot returns the owner's single parentless node.
func (r *PostgresNodeRepository) GetRoot(ctx context.Context, ownerID string) (*models.Node, error) {
	db := postgres.GetExecutor(ctx, r.pool)

	query := fmt.Sprintf(`
		SELECT id, owner_id, parent_id, name, kind, COALESCE(target, ''), created_at, updated_at
		FROM %s
		WHERE owner_id = $1 AND parent_id IS NULL
	`, r.tables.Nodes)

	node, err := scanNode(db.QueryRow(ctx, query, ownerID))
	if err != nil {
		if postgres.IsNoRowsError(err) {
			return nil, fmt.Errorf("owner %s has no tree: %w", ownerID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get root: %w", err)
	}

	return node, nil
}

// ListByOwner returns the owner's full flat node set.
func (r *PostgresNodeRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Node, error) {
	db := postgres.GetExecutor(ctx, r.pool)

	query := fmt.Sprintf(`
		SELECT id, owner_id, parent_id, name, kind, COALESCE(target, ''), created_at, updated_at
		FROM %s
		WHERE owner_id = $1
		ORDER BY created_at, id
	`, r.tables.Nodes)

	rows, err := db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	return collectNodes(rows)
}

// ListChildren returns the direct children of a folder.
func (r *PostgresNodeRepository) ListChildren(ctx context.Context, parentID, ownerID string) ([]models.Node, error) {
	db := postgres.GetExecutor(ctx, r.pool)

	query := fmt.Sprintf(`
		SELECT id, owner_id, parent_id, name, kind, COALESCE(target, ''), created_at, updated_at
		FROM %s
		WHERE owner_id = $1 AND parent_id = $2
		ORDER BY created_at, id
	`, r.tables.Nodes)

	rows, err := db.Query(ctx, query, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	return collectNodes(rows)
}

// DeleteByIDs removes the given nodes in a single statement. The foreign key
// on parent_id is checked per statement, so deleting a closed subtree in one
// DELETE never trips it.
func (r *PostgresNodeRepository) DeleteByIDs(ctx context.Context, ids []string, ownerID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	db := postgres.GetExecutor(ctx, r.pool)

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE owner_id = $1 AND id = ANY($2)
	`, r.tables.Nodes)

	tag, err := db.Exec(ctx, query, ownerID, ids)
	if err != nil {
		return 0, fmt.Errorf("delete nodes: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *PostgresNodeRepository) getByID(ctx context.Context, db queryRower, id, ownerID string) (*models.Node, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, parent_id, name, kind, COALESCE(target, ''), created_at, updated_at
		FROM %s
		WHERE id = $1 AND owner_id = $2
	`, r.tables.Nodes)

	node, err := scanNode(db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if postgres.IsNoRowsError(err) {
			return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get node: %w", err)
	}

	return node, nil
}

// getSibling looks up an existing child of the same parent, kind, and name.
// Returns nil without error when there is none.
func (r *PostgresNodeRepository) getSibling(ctx context.Context, db queryRower, node *models.Node) (*models.Node, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, parent_id, name, kind, COALESCE(target, ''), created_at, updated_at
		FROM %s
		WHERE owner_id = $1 AND parent_id = $2 AND kind = $3 AND name = $4
	`, r.tables.Nodes)

	sibling, err := scanNode(db.QueryRow(ctx, query, node.OwnerID, node.ParentID, node.Kind, node.Name))
	if err != nil {
		if postgres.IsNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("check siblings: %w", err)
	}

	return sibling, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func scanNode(row pgx.Row) (*models.Node, error) {
	var node models.Node
	err := row.Scan(
		&node.ID,
		&node.OwnerID,
		&node.ParentID,
		&node.Name,
		&node.Kind,
		&node.Target,
		&node.CreatedAt,
		&node.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func collectNodes(rows pgx.Rows) ([]models.Node, error) {
	var nodes []models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

// nullableTarget maps the empty target of folder nodes to NULL so the
// kind/target schema check holds.
func nullableTarget(node *models.Node) *string {
	if node.Kind == models.KindReference {
		return &node.Target
	}
	return nil
}

func kindLabel(kind models.NodeKind) string {
	if kind == models.KindFolder {
		return "folder"
	}
	return "favorite"
}
