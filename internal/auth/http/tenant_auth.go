package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/service"
	"github.com/authplatform/passage/internal/auth/store"
	"github.com/authplatform/passage/pkg/httpx"
)

// TenantAuthHandler serves end-user authentication under /v1/p/{apiKey}.
// Every route resolves the project from the path first so that all tenant
// operations are scoped to one project.
type TenantAuthHandler struct {
	Projects *service.ProjectService
	EndUsers *service.EndUserService
}

// resolveProject loads the project for the {apiKey} path segment. Returns
// false after writing a 404 when the key matches nothing.
func resolveProject(w http.ResponseWriter, r *http.Request, projects *service.ProjectService) (domain.Project, bool) {
	project, err := projects.GetProjectByAPIKey(r.Context(), r.PathValue("apiKey"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "unknown_api_key", "No project matches this API key")
		} else {
			writeServiceError(w, r, err)
		}
		return domain.Project{}, false
	}
	return project, true
}

func (h *TenantAuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	project, ok := resolveProject(w, r, h.Projects)
	if !ok {
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	user, err := h.EndUsers.Register(r.Context(), project, req.Email, req.FullName, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, endUserResponse(user, nil))
}

func (h *TenantAuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	project, ok := resolveProject(w, r, h.Projects)
	if !ok {
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token query parameter is required")
		return
	}

	if err := h.EndUsers.VerifyEmail(r.Context(), project, token); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Email verified"})
}

func (h *TenantAuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	project, ok := resolveProject(w, r, h.Projects)
	if !ok {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	token, expiresAt, _, err := h.EndUsers.Login(r.Context(), project, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

func (h *TenantAuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	project, ok := resolveProject(w, r, h.Projects)
	if !ok {
		return
	}

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.EndUsers.ForgotPassword(r.Context(), project, req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, MessageResponse{
		Message: "If the address is registered, a reset code has been sent",
	})
}

func (h *TenantAuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	project, ok := resolveProject(w, r, h.Projects)
	if !ok {
		return
	}

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.EndUsers.ResetPassword(r.Context(), project, req.Email, req.Code, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password updated"})
}

// HandleValidate lets a relying party check an end-user token. Invalid
// tokens produce a 200 with valid=false so callers can branch without
// parsing error bodies.
func (h *TenantAuthHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	project, ok := resolveProject(w, r, h.Projects)
	if !ok {
		return
	}

	var req ValidateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	result, err := h.EndUsers.ValidateToken(r.Context(), project, req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ValidateTokenResponse{
		Valid:        result.Valid,
		Email:        result.Email,
		Roles:        result.Roles,
		MaxRoleLevel: result.MaxRoleLevel,
	})
}
