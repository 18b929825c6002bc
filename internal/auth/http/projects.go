package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/service"
	"github.com/authplatform/passage/pkg/httpx"
)

// ProjectsHandler serves project lifecycle endpoints for owners.
type ProjectsHandler struct {
	Projects *service.ProjectService
	Perms    *service.PermissionService
}

func (h *ProjectsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context()).(domain.OwnerIdentity)

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	project, secret, err := h.Projects.CreateProject(r.Context(), id.Owner.ID, req.Name, req.AllowedOrigins)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, CreateProjectResponse{
		Project:   projectResponse(project),
		APISecret: secret,
	})
}

func (h *ProjectsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context()).(domain.OwnerIdentity)

	projects, err := h.Projects.ListProjects(r.Context(), id.Owner.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]ProjectResponse, len(projects))
	for i, p := range projects {
		out[i] = projectResponse(p)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *ProjectsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !authorizeProjectManage(w, r, h.Perms, projectID) {
		return
	}

	project, err := h.Projects.GetProject(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, projectResponse(project))
}

func (h *ProjectsHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !authorizeProjectManage(w, r, h.Perms, projectID) {
		return
	}

	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	if err := h.Projects.UpdateProject(r.Context(), projectID, req.Name, req.AllowedOrigins); err != nil {
		writeServiceError(w, r, err)
		return
	}

	project, err := h.Projects.GetProject(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, projectResponse(project))
}

