package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/forgelane/proposal-engine/pkg/services"
)

// KnowledgeHandler exposes read and admin-delete access to the knowledge
// corpus. Entries are never created over HTTP; only approval events inside
// the workflow append to the corpus.
type KnowledgeHandler struct {
	knowledge services.KnowledgeService
	logger    *zap.Logger
}

// NewKnowledgeHandler creates a new KnowledgeHandler.
func NewKnowledgeHandler(knowledge services.KnowledgeService, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge, logger: logger}
}

// RegisterRoutes registers the knowledge handler's routes on the given mux.
func (h *KnowledgeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects/{pid}/knowledge", h.ListByProject)
	mux.HandleFunc("DELETE /api/admin/knowledge/{kid}", h.Delete)
}

// ListByProject handles GET /api/projects/{pid}/knowledge.
func (h *KnowledgeHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	entries, err := h.knowledge.ListByProject(r.Context(), projectID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, entries); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/admin/knowledge/{kid}.
// Individual curation of the append-only corpus.
func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entryID, ok := ParseEntryID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.knowledge.Delete(r.Context(), entryID); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
