package http

import (
	"encoding/json"
	"net/http"

	"github.com/authplatform/passage/internal/auth/service"
	"github.com/authplatform/passage/pkg/httpx"
)

// RolesHandler serves the per-project role CRUD endpoints.
type RolesHandler struct {
	Roles *service.RoleService
	Perms *service.PermissionService
}

func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !authorizeProjectManage(w, r, h.Perms, projectID) {
		return
	}

	roles, err := h.Roles.ListRoles(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, roleResponses(roles))
}

func (h *RolesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !authorizeProjectManage(w, r, h.Perms, projectID) {
		return
	}

	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	role, err := h.Roles.CreateRole(r.Context(), projectID, req.Name, req.Level)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, roleResponse(role))
}

func (h *RolesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !authorizeProjectManage(w, r, h.Perms, projectID) {
		return
	}

	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	role, err := h.Roles.UpdateRole(r.Context(), projectID, r.PathValue("roleID"), req.Name, req.Level)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, roleResponse(role))
}

func (h *RolesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !authorizeProjectManage(w, r, h.Perms, projectID) {
		return
	}

	if err := h.Roles.DeleteRole(r.Context(), projectID, r.PathValue("roleID")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
