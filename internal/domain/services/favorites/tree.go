package favorites

import (
	"context"

	"atelier/internal/domain/models/favorites"
)

// ImportItem is one entry of a batch import payload before resolution.
// It is request-scoped and never persisted as-is: the resolver consumes the
// whole batch and produces real nodes plus a temp_id -> id mapping.
//
// Exactly one of ParentID / ParentTempID may be set; with neither, the item
// attaches under the operation's landing folder. ParentTempID refers to
// another item of the same batch, which may appear later in the list
// (forward reference).
type ImportItem struct {
	TempID       string             `json:"temp_id"`
	ParentID     *string            `json:"parent_id,omitempty"`
	ParentTempID *string            `json:"parent_temp_id,omitempty"`
	Name         string             `json:"name"`
	Kind         favorites.NodeKind `json:"node_type"`
	Target       string             `json:"target,omitempty"`
}

// AddFolderRequest creates one folder under an existing parent.
// A nil ParentID targets the owner's root.
type AddFolderRequest struct {
	OwnerID        string  `json:"-"`
	ParentID       *string `json:"parent_id"`
	Name           string  `json:"name"`
	IdempotencyKey string  `json:"-"`
}

// AddReferenceRequest creates one file-reference node pointing at an opaque
// artifact locator. A nil ParentID targets the owner's root.
type AddReferenceRequest struct {
	OwnerID        string  `json:"-"`
	ParentID       *string `json:"parent_id"`
	Name           string  `json:"name"`
	Target         string  `json:"target"`
	IdempotencyKey string  `json:"-"`
}

// ImportBatchRequest imports a flat list of items, resolving forward
// references between them. Items without any parent land under
// LandingFolderID (nil = the owner's root).
type ImportBatchRequest struct {
	OwnerID         string       `json:"-"`
	LandingFolderID *string      `json:"landing_folder_id"`
	Items           []ImportItem `json:"items"`
	IdempotencyKey  string       `json:"-"`
}

// TreeService exposes the request-level tree operations. It is stateless
// between calls; the store's transactions are the only serialization point,
// so concurrent calls for the same owner are legal.
type TreeService interface {
	// GetTree returns the owner's full flat node set, creating the root
	// folder on first access.
	GetTree(ctx context.Context, ownerID string) ([]favorites.Node, error)

	// GetNode fetches a single node scoped to its owner.
	GetNode(ctx context.Context, ownerID, nodeID string) (*favorites.Node, error)

	// AddFolder creates a single folder node.
	AddFolder(ctx context.Context, req *AddFolderRequest) (*favorites.Node, error)

	// AddReference creates a single file-reference node.
	AddReference(ctx context.Context, req *AddReferenceRequest) (*favorites.Node, error)

	// DeleteSubtree removes a node and its whole subtree atomically,
	// returning every removed node for caller bookkeeping.
	DeleteSubtree(ctx context.Context, ownerID, nodeID string) ([]favorites.RemovedNode, error)

	// ImportBatch resolves and creates the batch all-or-nothing and returns
	// the temp_id -> id resolution map.
	ImportBatch(ctx context.Context, req *ImportBatchRequest) (map[string]string, error)

	// ExportSubtree serializes the subtree rooted at nodeID, re-rooting it:
	// the chosen node's parent becomes nil. Exporting the owner's true root
	// instead yields the forest of its children, each with a nil parent;
	// callers must handle the forest shape explicitly.
	ExportSubtree(ctx context.Context, ownerID, nodeID string) ([]favorites.Node, error)
}
