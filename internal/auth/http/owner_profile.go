package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/service"
	"github.com/authplatform/passage/pkg/httpx"
)

// ProfileHandler serves the authenticated owner's own record.
type ProfileHandler struct {
	Owners *service.OwnerService
}

func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context()).(domain.OwnerIdentity)

	owner, err := h.Owners.GetOwnerByID(r.Context(), id.Owner.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ownerResponse(owner))
}

func (h *ProfileHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context()).(domain.OwnerIdentity)

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "full_name is required")
		return
	}

	if err := h.Owners.UpdateFullName(r.Context(), id.Owner.ID, req.FullName); err != nil {
		writeServiceError(w, r, err)
		return
	}

	owner, err := h.Owners.GetOwnerByID(r.Context(), id.Owner.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ownerResponse(owner))
}
