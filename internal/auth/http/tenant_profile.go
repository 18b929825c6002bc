package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/service"
	"github.com/authplatform/passage/pkg/httpx"
)

// TenantProfileHandler serves the authenticated end-user's own record.
type TenantProfileHandler struct {
	Projects *service.ProjectService
	EndUsers *service.EndUserService
}

// requireEndUser resolves the project and checks that the caller is an end
// user belonging to it. Returns false after writing the response otherwise.
func (h *TenantProfileHandler) requireEndUser(w http.ResponseWriter, r *http.Request) (domain.Project, domain.EndUserIdentity, bool) {
	project, ok := resolveProject(w, r, h.Projects)
	if !ok {
		return domain.Project{}, domain.EndUserIdentity{}, false
	}

	id, ok := IdentityFromContext(r.Context()).(domain.EndUserIdentity)
	if !ok || id.EndUser.ProjectID != project.ID {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return domain.Project{}, domain.EndUserIdentity{}, false
	}
	return project, id, true
}

func (h *TenantProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	project, id, ok := h.requireEndUser(w, r)
	if !ok {
		return
	}

	user, err := h.EndUsers.GetEndUser(r.Context(), project.ID, id.EndUser.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, endUserResponse(user, id.Roles))
}

func (h *TenantProfileHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	project, id, ok := h.requireEndUser(w, r)
	if !ok {
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

	if err := h.EndUsers.UpdateFullName(r.Context(), project.ID, id.EndUser.ID, req.FullName); err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := h.EndUsers.GetEndUser(r.Context(), project.ID, id.EndUser.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, endUserResponse(user, id.Roles))
}

func (h *TenantProfileHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	project, id, ok := h.requireEndUser(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.EndUsers.ChangePassword(r.Context(), project.ID, id.EndUser.ID, req.OldPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password updated"})
}
