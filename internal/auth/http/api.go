package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/service"
	"github.com/authplatform/passage/internal/auth/store"
	"github.com/authplatform/passage/pkg/httpx"
	"github.com/authplatform/passage/pkg/slogx"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type OwnerResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	Locked        bool   `json:"locked"`
	CreatedAt     string `json:"created_at"`
}

type SetLockRequest struct {
	Locked bool `json:"locked"`
}

type SetOwnerRoleRequest struct {
	Role string `json:"role"`
}

type CreateProjectRequest struct {
	Name           string   `json:"name"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

type UpdateProjectRequest struct {
	Name           string   `json:"name"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

type ProjectResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	APIKey         string   `json:"api_key"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

// CreateProjectResponse carries the plaintext API secret. It is shown here
// exactly once and never retrievable again.
type CreateProjectResponse struct {
	Project   ProjectResponse `json:"project"`
	APISecret string          `json:"api_secret"`
}

type RoleRequest struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

type RoleResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

type EndUserResponse struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	FullName      string         `json:"full_name"`
	EmailVerified bool           `json:"email_verified"`
	Locked        bool           `json:"locked"`
	Roles         []RoleResponse `json:"roles,omitempty"`
	CreatedAt     string         `json:"created_at"`
}

type AssignRoleRequest struct {
	RoleID string `json:"role_id"`
}

type ReplaceRolesRequest struct {
	RoleIDs []string `json:"role_ids"`
}

type ValidateTokenRequest struct {
	Token string `json:"token"`
}

type ValidateTokenResponse struct {
	Valid        bool     `json:"valid"`
	Email        string   `json:"email,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	MaxRoleLevel int      `json:"max_role_level,omitempty"`
}

func ownerResponse(o domain.Owner) OwnerResponse {
	return OwnerResponse{
		ID:            o.ID,
		Email:         o.Email,
		FullName:      o.FullName,
		Role:          string(o.Role),
		EmailVerified: o.EmailVerified,
		Locked:        o.Locked,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
}

func projectResponse(p domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:             p.ID,
		Name:           p.Name,
		APIKey:         p.APIKey,
		AllowedOrigins: p.AllowedOrigins,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
}

func roleResponse(r domain.ProjectRole) RoleResponse {
	return RoleResponse{ID: r.ID, Name: r.Name, Level: r.Level}
}

func roleResponses(roles []domain.ProjectRole) []RoleResponse {
	out := make([]RoleResponse, len(roles))
	for i, r := range roles {
		out[i] = roleResponse(r)
	}
	return out
}

func endUserResponse(u domain.EndUser, roles []domain.ProjectRole) EndUserResponse {
	return EndUserResponse{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		EmailVerified: u.EmailVerified,
		Locked:        u.Locked,
		Roles:         roleResponses(roles),
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
	}
}

// writeServiceError maps service sentinels to HTTP responses. Anything
// unmapped is a server fault and gets logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect")
	case errors.Is(err, service.ErrEmailNotVerified):
		httpx.WriteError(w, http.StatusForbidden, "email_not_verified", "Verify your email address before logging in")
	case errors.Is(err, service.ErrAccountLocked):
		httpx.WriteError(w, http.StatusForbidden, "account_locked", "This account is locked")
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, "email_taken", "An account with this email already exists")
	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_token", "The token is invalid or expired")
	case errors.Is(err, service.ErrInvalidOTP):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_otp", "The reset code is invalid or expired")
	case errors.Is(err, service.ErrAccessDenied):
		httpx.WriteError(w, http.StatusForbidden, "access_denied", "You do not have permission to do this")
	case errors.Is(err, service.ErrCrossProjectRole):
		httpx.WriteError(w, http.StatusBadRequest, "cross_project_role", "Role does not belong to this project")
	case errors.Is(err, service.ErrLastRole):
		httpx.WriteError(w, http.StatusConflict, "last_role", "A user must keep at least one role")
	case errors.Is(err, service.ErrProtectedRole):
		httpx.WriteError(w, http.StatusForbidden, "protected_role", "Default roles cannot be modified or deleted")
	case errors.Is(err, service.ErrRoleInUse):
		httpx.WriteError(w, http.StatusConflict, "role_in_use", "The role is still assigned to users")
	case errors.Is(err, service.ErrInvalidRoleName):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_role_name", "The role name is not valid")
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "The requested resource does not exist")
	case errors.Is(err, store.ErrAlreadyExists):
		httpx.WriteError(w, http.StatusConflict, "already_exists", "The resource already exists")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong")
	}
}
