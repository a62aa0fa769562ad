// Package mirror keeps a local copy of the favorites tree with an
// optimistic overlay: confirmed nodes mirror the server, pending entries
// represent mutations whose requests are still in flight. Pending entries
// are keyed by caller-chosen temp ids and may parent one another, so a
// staged folder can receive staged children before the server has assigned
// either a real id.
package mirror

import (
	"sort"
	"sync"

	models "atelier/internal/domain/models/favorites"
)

// Entry is one node of the mirrored tree. ParentID may name either a
// confirmed server id or the temp id of another pending entry.
type Entry struct {
	ID       string
	ParentID *string
	Name     string
	Kind     models.NodeKind
	Target   string
	Pending  bool
}

// Mirror is safe for concurrent use.
type Mirror struct {
	mu        sync.RWMutex
	confirmed map[string]Entry // by server id
	pending   map[string]Entry // by temp id
}

// New creates an empty mirror.
func New() *Mirror {
	return &Mirror{
		confirmed: make(map[string]Entry),
		pending:   make(map[string]Entry),
	}
}

// Reset replaces the confirmed set with a freshly fetched tree. Pending
// entries survive a reset; their requests are still in flight.
func (m *Mirror) Reset(nodes []models.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.confirmed = make(map[string]Entry, len(nodes))
	for _, n := range nodes {
		m.confirmed[n.ID] = entryOf(n)
	}
}

// Stage adds a pending entry under tempID. The entry renders immediately;
// Promote or ApplyResolution confirms it, Discard rolls it back.
func (m *Mirror) Stage(tempID string, parentID *string, name string, kind models.NodeKind, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending[tempID] = Entry{
		ID:       tempID,
		ParentID: parentID,
		Name:     name,
		Kind:     kind,
		Target:   target,
		Pending:  true,
	}
}

// Promote confirms a single staged entry with the node the server created,
// rewriting any pending children that referenced the temp id.
func (m *Mirror) Promote(tempID string, node *models.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pending, tempID)
	m.confirmed[node.ID] = entryOf(*node)
	m.rewriteParentLocked(tempID, node.ID)
}

// ApplyResolution confirms a whole staged batch using the temp_id -> id
// mapping an import returned. Parent references between batch members are
// rewritten to the assigned ids.
func (m *Mirror) ApplyResolution(mapping map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for tempID, id := range mapping {
		entry, ok := m.pending[tempID]
		if !ok {
			continue
		}
		delete(m.pending, tempID)
		entry.ID = id
		entry.Pending = false
		m.confirmed[id] = entry
	}
	for tempID, id := range mapping {
		m.rewriteParentLocked(tempID, id)
	}
}

// Discard drops a staged entry whose request failed, along with any staged
// descendants that were parented under it.
func (m *Mirror) Discard(tempID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frontier := []string{tempID}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		delete(m.pending, id)
		for childID, child := range m.pending {
			if child.ParentID != nil && *child.ParentID == id {
				frontier = append(frontier, childID)
			}
		}
	}
}

// Remove drops confirmed nodes a delete reported as removed.
func (m *Mirror) Remove(removed []models.RemovedNode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range removed {
		delete(m.confirmed, r.ID)
	}
}

// Get returns the entry with the given id, confirmed or pending.
func (m *Mirror) Get(id string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.confirmed[id]; ok {
		return e, true
	}
	e, ok := m.pending[id]
	return e, ok
}

// Children returns the direct children of parentID, folders first, then by
// name.
func (m *Mirror) Children(parentID string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for _, e := range m.confirmed {
		if e.ParentID != nil && *e.ParentID == parentID {
			out = append(out, e)
		}
	}
	for _, e := range m.pending {
		if e.ParentID != nil && *e.ParentID == parentID {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out
}

// TreeNode is one node of a nested rendering of the mirror.
type TreeNode struct {
	Entry
	Children []*TreeNode
}

// Tree renders the mirror as nested trees, one per parentless entry.
// Entries whose parent is unknown (e.g. the parent was deleted underneath
// a stale overlay) surface as extra roots rather than disappearing.
func (m *Mirror) Tree() []*TreeNode {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Pass 1: a TreeNode per entry.
	index := make(map[string]*TreeNode, len(m.confirmed)+len(m.pending))
	for id, e := range m.confirmed {
		index[id] = &TreeNode{Entry: e}
	}
	for id, e := range m.pending {
		index[id] = &TreeNode{Entry: e}
	}

	// Pass 2: link children to parents.
	var roots []*TreeNode
	for _, node := range index {
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := index[*node.ParentID]
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	// Pass 3: deterministic order at every level.
	for _, node := range index {
		sortTreeNodes(node.Children)
	}
	sortTreeNodes(roots)

	return roots
}

// rewriteParentLocked redirects every entry parented under oldID to newID.
func (m *Mirror) rewriteParentLocked(oldID, newID string) {
	for id, e := range m.pending {
		if e.ParentID != nil && *e.ParentID == oldID {
			parent := newID
			e.ParentID = &parent
			m.pending[id] = e
		}
	}
	for id, e := range m.confirmed {
		if e.ParentID != nil && *e.ParentID == oldID {
			parent := newID
			e.ParentID = &parent
			m.confirmed[id] = e
		}
	}
}

func entryOf(n models.Node) Entry {
	return Entry{
		ID:       n.ID,
		ParentID: n.ParentID,
		Name:     n.Name,
		Kind:     n.Kind,
		Target:   n.Target,
	}
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind == models.KindFolder
		}
		return entries[i].Name < entries[j].Name
	})
}

func sortTreeNodes(nodes []*TreeNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind == models.KindFolder
		}
		return nodes[i].Name < nodes[j].Name
	})
}
