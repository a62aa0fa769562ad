package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"atelier/internal/domain"
	models "atelier/internal/domain/models/favorites"
	favSvc "atelier/internal/domain/services/favorites"
	"atelier/internal/httputil"
)

// NodeHandler handles HTTP requests for single-node mutations
type NodeHandler struct {
	treeService favSvc.TreeService
	logger      *slog.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(treeService favSvc.TreeService, logger *slog.Logger) *NodeHandler {
	return &NodeHandler{
		treeService: treeService,
		logger:      logger,
	}
}

type createNodeRequest struct {
	ParentID *string         `json:"parent_id"`
	Name     string          `json:"name"`
	Kind     models.NodeKind `json:"node_type"`
	Target   string          `json:"target"`
}

// CreateNode creates one folder or file-reference node
// POST /api/nodes
// Returns 201 if created, 409 with the existing sibling if the name collides
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	ownerID := httputil.GetOwnerID(r)

	var req createNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	node, err := h.createNode(r, ownerID, &req)
	if err != nil {
		HandleCreateConflict(w, err, func() (*models.Node, error) {
			var conflictErr *domain.ConflictError
			if errors.As(err, &conflictErr) && conflictErr.ResourceID != "" {
				return h.treeService.GetNode(r.Context(), ownerID, conflictErr.ResourceID)
			}
			return nil, err
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, node)
}

func (h *NodeHandler) createNode(r *http.Request, ownerID string, req *createNodeRequest) (*models.Node, error) {
	switch req.Kind {
	case models.KindFolder:
		return h.treeService.AddFolder(r.Context(), &favSvc.AddFolderRequest{
			OwnerID:        ownerID,
			ParentID:       req.ParentID,
			Name:           req.Name,
			IdempotencyKey: idempotencyKey(r),
		})
	case models.KindReference:
		return h.treeService.AddReference(r.Context(), &favSvc.AddReferenceRequest{
			OwnerID:        ownerID,
			ParentID:       req.ParentID,
			Name:           req.Name,
			Target:         req.Target,
			IdempotencyKey: idempotencyKey(r),
		})
	default:
		return nil, fmt.Errorf("%w: unknown node_type %q", domain.ErrValidation, req.Kind)
	}
}

type deleteNodeResponse struct {
	Removed []models.RemovedNode `json:"removed"`
}

// DeleteNode removes a node and its whole subtree
// DELETE /api/nodes/{id}
// Deleting a node that is already gone succeeds with an empty removed list,
// so retried deletes are safe.
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	ownerID := httputil.GetOwnerID(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "node ID is required")
		return
	}

	removed, err := h.treeService.DeleteSubtree(r.Context(), ownerID, id)
	if errors.Is(err, domain.ErrNotFound) {
		httputil.RespondJSON(w, http.StatusOK, deleteNodeResponse{Removed: []models.RemovedNode{}})
		return
	}
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, deleteNodeResponse{Removed: removed})
}

type exportResponse struct {
	Nodes []models.Node `json:"nodes"`
}

// ExportSubtree serializes a subtree as a self-contained flat node list
// GET /api/nodes/{id}/export
func (h *NodeHandler) ExportSubtree(w http.ResponseWriter, r *http.Request) {
	ownerID := httputil.GetOwnerID(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "node ID is required")
		return
	}

	nodes, err := h.treeService.ExportSubtree(r.Context(), ownerID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, exportResponse{Nodes: nodes})
}
