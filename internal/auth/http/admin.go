package http

import (
	"encoding/json"
	"net/http"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/service"
	"github.com/authplatform/passage/pkg/httpx"
)

// AdminHandler serves the platform administration endpoints. Routes are
// gated behind RequireAdmin.
type AdminHandler struct {
	Owners *service.OwnerService
}

func (h *AdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owners, err := h.Owners.ListOwners(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]OwnerResponse, len(owners))
	for i, o := range owners {
		out[i] = ownerResponse(o)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) HandleSetLock(w http.ResponseWriter, r *http.Request) {
	var req SetLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.Owners.SetOwnerLocked(r.Context(), r.PathValue("id"), req.Locked); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Lock state updated"})
}

func (h *AdminHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	var req SetOwnerRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.Owners.SetOwnerRole(r.Context(), r.PathValue("id"), domain.OwnerRole(req.Role)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Role updated"})
}
