package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"atelier/internal/domain"
	models "atelier/internal/domain/models/favorites"
	"atelier/internal/domain/repositories"
)

// memNodeRepo is an in-memory NodeRepository enforcing the same invariants
// as the SQL implementation: parent must be an existing folder, sibling
// names are unique per kind, at most one root per owner.
type memNodeRepo struct {
	nodes  map[string]*models.Node
	order  []string
	nextID int

	// failCreateName, when set, injects failErr on Create of a node with
	// that name. Used to exercise rollback paths.
	failCreateName string
	failErr        error

	createCalls int
}

func newMemNodeRepo() *memNodeRepo {
	return &memNodeRepo{nodes: make(map[string]*models.Node)}
}

func (r *memNodeRepo) Create(_ context.Context, node *models.Node) error {
	r.createCalls++
	if node.Name == r.failCreateName && r.failCreateName != "" {
		return r.failErr
	}

	if node.ParentID == nil {
		for _, id := range r.order {
			existing := r.nodes[id]
			if existing.OwnerID == node.OwnerID && existing.ParentID == nil {
				return &domain.ConflictError{
					Message:      "root folder already exists",
					ResourceType: "node",
					ResourceID:   existing.ID,
				}
			}
		}
	} else {
		parent, ok := r.nodes[*node.ParentID]
		if !ok || parent.OwnerID != node.OwnerID {
			return fmt.Errorf("parent %s: %w", *node.ParentID, domain.ErrNotFound)
		}
		if !parent.IsFolder() {
			return fmt.Errorf("%w: parent %s is not a folder", domain.ErrValidation, parent.ID)
		}
		for _, id := range r.order {
			sib := r.nodes[id]
			if sib.OwnerID == node.OwnerID && sib.ParentID != nil && *sib.ParentID == *node.ParentID &&
				sib.Kind == node.Kind && sib.Name == node.Name {
				return &domain.ConflictError{
					Message:      fmt.Sprintf("a %s named %q already exists here", node.Kind, node.Name),
					ResourceType: "node",
					ResourceID:   sib.ID,
				}
			}
		}
	}

	r.nextID++
	node.ID = fmt.Sprintf("node-%03d", r.nextID)
	node.CreatedAt = time.Now().UTC()
	node.UpdatedAt = node.CreatedAt

	stored := *node
	r.nodes[node.ID] = &stored
	r.order = append(r.order, node.ID)
	return nil
}

func (r *memNodeRepo) GetByID(_ context.Context, id, ownerID string) (*models.Node, error) {
	node, ok := r.nodes[id]
	if !ok || node.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	copied := *node
	return &copied, nil
}

func (r *memNodeRepo) GetRoot(_ context.Context, ownerID string) (*models.Node, error) {
	for _, id := range r.order {
		node := r.nodes[id]
		if node.OwnerID == ownerID && node.ParentID == nil {
			copied := *node
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memNodeRepo) ListByOwner(_ context.Context, ownerID string) ([]models.Node, error) {
	var out []models.Node
	for _, id := range r.order {
		if node := r.nodes[id]; node.OwnerID == ownerID {
			out = append(out, *node)
		}
	}
	return out, nil
}

func (r *memNodeRepo) ListChildren(_ context.Context, parentID, ownerID string) ([]models.Node, error) {
	var out []models.Node
	for _, id := range r.order {
		node := r.nodes[id]
		if node.OwnerID == ownerID && node.ParentID != nil && *node.ParentID == parentID {
			out = append(out, *node)
		}
	}
	return out, nil
}

func (r *memNodeRepo) DeleteByIDs(_ context.Context, ids []string, ownerID string) (int64, error) {
	var count int64
	for _, id := range ids {
		node, ok := r.nodes[id]
		if !ok || node.OwnerID != ownerID {
			continue
		}
		delete(r.nodes, id)
		count++
	}
	kept := r.order[:0]
	for _, id := range r.order {
		if _, ok := r.nodes[id]; ok {
			kept = append(kept, id)
		}
	}
	r.order = kept
	return count, nil
}

func (r *memNodeRepo) snapshot() memSnapshot {
	nodes := make(map[string]*models.Node, len(r.nodes))
	for id, node := range r.nodes {
		copied := *node
		nodes[id] = &copied
	}
	return memSnapshot{
		nodes:  nodes,
		order:  append([]string(nil), r.order...),
		nextID: r.nextID,
	}
}

func (r *memNodeRepo) restore(s memSnapshot) {
	r.nodes = s.nodes
	r.order = s.order
	r.nextID = s.nextID
}

type memSnapshot struct {
	nodes  map[string]*models.Node
	order  []string
	nextID int
}

// memIdemRepo is an in-memory IdempotencyRepository.
type memIdemRepo struct {
	records map[string][]byte
}

func newMemIdemRepo() *memIdemRepo {
	return &memIdemRepo{records: make(map[string][]byte)}
}

func (r *memIdemRepo) key(ownerID, key string) string { return ownerID + "\x00" + key }

func (r *memIdemRepo) Get(_ context.Context, ownerID, key string) ([]byte, error) {
	rec, ok := r.records[r.key(ownerID, key)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (r *memIdemRepo) Put(_ context.Context, ownerID, key string, response []byte) error {
	k := r.key(ownerID, key)
	if _, ok := r.records[k]; ok {
		return domain.ErrConflict
	}
	r.records[k] = append([]byte(nil), response...)
	return nil
}

func (r *memIdemRepo) snapshot() map[string][]byte {
	out := make(map[string][]byte, len(r.records))
	for k, v := range r.records {
		out[k] = v
	}
	return out
}

// memTxManager snapshots the in-memory stores before running fn and
// restores them when fn errors, mimicking a rollback.
type memTxManager struct {
	nodes *memNodeRepo
	idem  *memIdemRepo
}

func (m *memTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	nodeSnap := m.nodes.snapshot()
	idemSnap := m.idem.snapshot()
	if err := fn(ctx); err != nil {
		m.nodes.restore(nodeSnap)
		m.idem.records = idemSnap
		return err
	}
	return nil
}

// newTestService wires a service around fresh in-memory stores.
func newTestService(maxBatch int) (*treeService, *memNodeRepo, *memIdemRepo) {
	nodes := newMemNodeRepo()
	idem := newMemIdemRepo()
	tx := &memTxManager{nodes: nodes, idem: idem}
	svc := NewTreeService(nodes, idem, tx, maxBatch, slog.New(slog.DiscardHandler)).(*treeService)
	return svc, nodes, idem
}

// namesOf returns the sorted names of a node slice, for order-insensitive
// assertions.
func namesOf(nodes []models.Node) []string {
	names := make([]string, len(nodes))
	for i := range nodes {
		names[i] = nodes[i].Name
	}
	sort.Strings(names)
	return names
}
