package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/forgelane/proposal-engine/pkg/config"
	"github.com/forgelane/proposal-engine/pkg/models"
	"github.com/forgelane/proposal-engine/pkg/services"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// BreakerReporter exposes per-provider circuit breaker state for the
// provider health endpoint.
type BreakerReporter interface {
	BreakerStates() map[string]string
}

// HealthHandler handles health check, ping, and provider health endpoints.
type HealthHandler struct {
	cfg      *config.Config
	health   *services.HealthStore
	breakers BreakerReporter
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. breakers may be nil when no
// orchestrator is wired (the breakers field is then omitted from responses).
func NewHealthHandler(cfg *config.Config, health *services.HealthStore, breakers BreakerReporter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, health: health, breakers: breakers, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
	mux.HandleFunc("GET /api/health/providers", h.Providers)
	mux.HandleFunc("POST /api/admin/health/reset", h.Reset)
}

// Health handles GET /health requests.
// Returns a simple "ok" status for load balancer health checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "proposal-engine",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

type providerHealthResponse struct {
	Services []*models.APIHealth `json:"services"`
	Breakers map[string]string   `json:"breakers,omitempty"`
}

// Providers handles GET /api/health/providers.
// Returns the last-known reading for every tracked service plus the current
// circuit breaker state per provider.
func (h *HealthHandler) Providers(w http.ResponseWriter, r *http.Request) {
	response := providerHealthResponse{Services: h.health.Snapshot()}
	if h.breakers != nil {
		response.Breakers = h.breakers.BreakerStates()
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Reset handles POST /api/admin/health/reset.
func (h *HealthHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Reset(r.Context()); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string]string{"status": "reset"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
