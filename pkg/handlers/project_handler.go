package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/forgelane/proposal-engine/pkg/services"
)

// ProjectsHandler exposes the project workflow over HTTP.
type ProjectsHandler struct {
	workflow services.WorkflowController
	logger   *zap.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(workflow services.WorkflowController, logger *zap.Logger) *ProjectsHandler {
	return &ProjectsHandler{workflow: workflow, logger: logger}
}

// RegisterRoutes registers the projects handler's routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/projects", h.Create)
	mux.HandleFunc("GET /api/projects", h.List)
	mux.HandleFunc("GET /api/projects/{pid}", h.Get)
	mux.HandleFunc("POST /api/projects/{pid}/advance", h.Advance)
	mux.HandleFunc("POST /api/projects/{pid}/regenerate", h.Regenerate)
	mux.HandleFunc("POST /api/projects/{pid}/chat", h.Chat)
	mux.HandleFunc("DELETE /api/projects/{pid}", h.Wipe)
}

// Create handles POST /api/projects.
// Creates the project and runs stage 1 input processing synchronously.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateProjectInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	project, err := h.workflow.CreateProject(r.Context(), input)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/projects.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.workflow.ListProjects(r.Context())
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, projects); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/projects/{pid}.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	project, err := h.workflow.GetProject(r.Context(), projectID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// advanceRequest is the body of POST /api/projects/{pid}/advance.
type advanceRequest struct {
	Action string                `json:"action"`
	Params services.ActionParams `json:"params"`
}

// Advance handles POST /api/projects/{pid}/advance.
// Applies one workflow action; rejected transitions return 409 with the
// project untouched.
func (h *ProjectsHandler) Advance(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	project, err := h.workflow.AdvanceStage(r.Context(), projectID, services.Action(req.Action), req.Params)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// regenerateRequest is the body of POST /api/projects/{pid}/regenerate.
type regenerateRequest struct {
	Operation string `json:"operation"`
}

// Regenerate handles POST /api/projects/{pid}/regenerate.
func (h *ProjectsHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	project, err := h.workflow.Regenerate(r.Context(), projectID, req.Operation)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// chatRequest is the body of POST /api/projects/{pid}/chat.
type chatRequest struct {
	Message string `json:"message"`
}

// Chat handles POST /api/projects/{pid}/chat.
// Conversation is stateless on the server side; it never mutates the project.
func (h *ProjectsHandler) Chat(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	reply, err := h.workflow.Chat(r.Context(), projectID, req.Message)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string]string{"reply": reply}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Wipe handles DELETE /api/projects/{pid}.
// Hard-deletes the project and its dependents.
func (h *ProjectsHandler) Wipe(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.workflow.Wipe(r.Context(), projectID); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string]string{"status": "wiped"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
