package favorites

import (
	"context"

	"atelier/internal/domain/models/favorites"
)

// NodeRepository is the authoritative store for an owner's tree. All
// implementations must keep the parent graph a rooted tree: parent_id always
// resolves to an existing folder node of the same owner (or nil for the single
// root), and sibling names are unique per kind.
type NodeRepository interface {
	// Create durably inserts the node and assigns its id. Fails with
	// domain.ErrNotFound when the parent does not exist, domain.ErrValidation
	// when the parent is not a folder, and a domain.ConflictError on a
	// sibling name collision.
	Create(ctx context.Context, node *favorites.Node) error

	// GetByID fetches a single node scoped to its owner.
	GetByID(ctx context.Context, id, ownerID string) (*favorites.Node, error)

	// GetRoot returns the owner's single parentless node, or
	// domain.ErrNotFound when the owner has no tree yet.
	GetRoot(ctx context.Context, ownerID string) (*favorites.Node, error)

	// ListByOwner returns the owner's full flat node set. Callers reconstruct
	// the hierarchy from parent ids.
	ListByOwner(ctx context.Context, ownerID string) ([]favorites.Node, error)

	// ListChildren returns the direct children of a folder.
	ListChildren(ctx context.Context, parentID, ownerID string) ([]favorites.Node, error)

	// DeleteByIDs removes the given nodes in one statement and reports how
	// many rows went away. The caller is responsible for passing a closed
	// descendant set so no orphans remain.
	DeleteByIDs(ctx context.Context, ids []string, ownerID string) (int64, error)
}

// IdempotencyRepository records the serialized response of a mutating request
// keyed by (owner, idempotency key), inside the same transaction as the
// mutation itself. Replaying the key returns the recorded response instead of
// re-executing, which makes timeout/commit races detectable by the client.
type IdempotencyRepository interface {
	// Get returns the recorded response, or domain.ErrNotFound.
	Get(ctx context.Context, ownerID, key string) ([]byte, error)

	// Put records the response for the key.
	Put(ctx context.Context, ownerID, key string, response []byte) error
}
