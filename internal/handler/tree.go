package handler

import (
	"log/slog"
	"net/http"

	models "atelier/internal/domain/models/favorites"
	favSvc "atelier/internal/domain/services/favorites"
	"atelier/internal/httputil"
)

// TreeHandler handles HTTP requests for whole-tree reads
type TreeHandler struct {
	treeService favSvc.TreeService
	logger      *slog.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(treeService favSvc.TreeService, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{
		treeService: treeService,
		logger:      logger,
	}
}

// GetTree returns the caller's full favorites tree, both as a flat node
// list and as a nested rendering
// GET /api/tree
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	ownerID := httputil.GetOwnerID(r)

	nodes, err := h.treeService.GetTree(r.Context(), ownerID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, treeResponse{
		Nodes: nodes,
		Tree:  models.BuildTree(nodes),
	})
}

type treeResponse struct {
	Nodes []models.Node      `json:"nodes"`
	Tree  []*models.TreeNode `json:"tree"`
}
