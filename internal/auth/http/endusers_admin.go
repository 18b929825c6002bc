package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/authplatform/passage/internal/auth/service"
	"github.com/authplatform/passage/pkg/httpx"
)

// EndUsersAdminHandler serves the management view of a project's user base.
type EndUsersAdminHandler struct {
	EndUsers *service.EndUserService
	Perms    *service.PermissionService
}

func (h *EndUsersAdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !authorizeProjectManage(w, r, h.Perms, projectID) {
		return
	}

	users, err := h.EndUsers.ListEndUsers(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]EndUserResponse, len(users))
	for i, u := range users {
		out[i] = endUserResponse(u, nil)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *EndUsersAdminHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !authorizeProjectManage(w, r, h.Perms, projectID) {
		return
	}

	user, err := h.EndUsers.GetEndUser(r.Context(), projectID, r.PathValue("userID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	roles, err := h.EndUsers.GetRoles(r.Context(), projectID, user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, endUserResponse(user, roles))
}

func (h *EndUsersAdminHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !authorizeProjectManage(w, r, h.Perms, projectID) {
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "full_name is required")
		return
	}

	if err := h.EndUsers.UpdateFullName(r.Context(), projectID, r.PathValue("userID"), req.FullName); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Profile updated"})
}

func (h *EndUsersAdminHandler) HandleSetLock(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !authorizeProjectManage(w, r, h.Perms, projectID) {
		return
	}

	var req SetLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.EndUsers.SetLocked(r.Context(), projectID, r.PathValue("userID"), req.Locked); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Lock state updated"})
}

func (h *EndUsersAdminHandler) HandleReplaceRoles(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !authorizeProjectManage(w, r, h.Perms, projectID) {
		return
	}

	var req ReplaceRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	userID := r.PathValue("userID")
	if err := h.EndUsers.ReplaceRoles(r.Context(), projectID, userID, req.RoleIDs); err != nil {
		writeServiceError(w, r, err)
		return
	}

	roles, err := h.EndUsers.GetRoles(r.Context(), projectID, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, roleResponses(roles))
}

func (h *EndUsersAdminHandler) HandleAssignRole(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !authorizeProjectManage(w, r, h.Perms, projectID) {
		return
	}

	var req AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.EndUsers.AssignRole(r.Context(), projectID, r.PathValue("userID"), req.RoleID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Role assigned"})
}

func (h *EndUsersAdminHandler) HandleRemoveRole(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !authorizeProjectManage(w, r, h.Perms, projectID) {
		return
	}

	if err := h.EndUsers.RemoveRole(r.Context(), projectID, r.PathValue("userID"), r.PathValue("roleID")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
