package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/forgelane/proposal-engine/pkg/services"
)

// UsageHandler serves cost and token dashboards from the usage ledger.
type UsageHandler struct {
	usage  services.UsageTracker
	logger *zap.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(usage services.UsageTracker, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{usage: usage, logger: logger}
}

// RegisterRoutes registers the usage handler's routes on the given mux.
func (h *UsageHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects/{pid}/usage", h.ProjectTotals)
	mux.HandleFunc("GET /api/admin/usage/providers", h.ProviderTotals)
}

// ProjectTotals handles GET /api/projects/{pid}/usage.
// Zero recorded attempts aggregate to zeroed totals, not an error.
func (h *UsageHandler) ProjectTotals(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	totals, err := h.usage.ProjectTotals(r.Context(), projectID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, totals); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ProviderTotals handles GET /api/admin/usage/providers.
func (h *UsageHandler) ProviderTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.usage.ProviderTotals(r.Context())
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, totals); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
