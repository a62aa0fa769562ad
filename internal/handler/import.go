package handler

import (
	"log/slog"
	"net/http"

	favSvc "atelier/internal/domain/services/favorites"
	"atelier/internal/httputil"
)

// ImportHandler handles HTTP requests for batch imports
type ImportHandler struct {
	treeService favSvc.TreeService
	logger      *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(treeService favSvc.TreeService, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		treeService: treeService,
		logger:      logger,
	}
}

type importResponse struct {
	Mapping map[string]string `json:"mapping"`
}

// ImportBatch imports a flat batch of items, all-or-nothing
// POST /api/import
// Returns 201 with the temp_id -> id mapping, or 422 with the unresolved
// temp ids when parent references cannot be satisfied.
func (h *ImportHandler) ImportBatch(w http.ResponseWriter, r *http.Request) {
	ownerID := httputil.GetOwnerID(r)

	var req favSvc.ImportBatchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.OwnerID = ownerID
	req.IdempotencyKey = idempotencyKey(r)

	mapping, err := h.treeService.ImportBatch(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, importResponse{Mapping: mapping})
}
