package favorites

import (
	"time"
)

// NodeKind discriminates folder nodes from file-reference nodes.
// The wire values ("folder"/"file") match what clients send as node_type.
type NodeKind string

const (
	KindFolder    NodeKind = "folder"
	KindReference NodeKind = "file"
)

// Valid reports whether k is one of the two known kinds.
func (k NodeKind) Valid() bool {
	return k == KindFolder || k == KindReference
}

// RootName is the display name of the single root folder every owner has.
const RootName = "/"

// Node is one entry in an owner's favorites tree. A node is either a folder
// (may have children, never a target) or a file reference (carries an opaque
// target locator, never children). Construct nodes through NewFolder and
// NewReference so a folder with a target stays unrepresentable.
type Node struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	ParentID  *string   `json:"parent_id"` // nil = this is the owner's root
	Name      string    `json:"name"`
	Kind      NodeKind  `json:"node_type"`
	Target    string    `json:"target,omitempty"` // opaque locator, reference nodes only
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFolder builds an unsaved folder node. A nil parentID designates the
// owner's root; the store enforces that at most one such node exists.
func NewFolder(ownerID string, parentID *string, name string) *Node {
	return &Node{
		OwnerID:  ownerID,
		ParentID: parentID,
		Name:     name,
		Kind:     KindFolder,
	}
}

// NewReference builds an unsaved file-reference node pointing at target.
// The target is never interpreted or dereferenced by the tree core.
func NewReference(ownerID string, parentID *string, name, target string) *Node {
	return &Node{
		OwnerID:  ownerID,
		ParentID: parentID,
		Name:     name,
		Kind:     KindReference,
		Target:   target,
	}
}

// IsFolder reports whether the node may have children.
func (n *Node) IsFolder() bool {
	return n.Kind == KindFolder
}

// IsRoot reports whether the node is the owner's root folder.
func (n *Node) IsRoot() bool {
	return n.ParentID == nil
}

// RemovedNode is the caller-bookkeeping record returned for every node a
// recursive delete removed, so other local structures referencing these ids
// (history lists, mirrors) can be reconciled.
type RemovedNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
