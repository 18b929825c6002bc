package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/service"
	"github.com/authplatform/passage/pkg/httpx"
)

type identityKey struct{}

// AuthnMiddleware runs the authentication dispatcher once per request and
// stashes the resolved identity (if any) in the request context. It never
// rejects a request itself; route-level guards decide what anonymity means.
func AuthnMiddleware(auth *service.AuthService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := auth.Authenticate(r.Context(),
				bearerToken(r),
				r.Header.Get("X-API-Key"),
				r.Header.Get("X-API-Secret"),
			)
			if id != nil {
				ctx := context.WithValue(r.Context(), identityKey{}, id)
				// Feed the principal id to the per-user rate limiter.
				ctx = context.WithValue(ctx, httpx.CtxKeyUserID, id.PrincipalID())
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext returns the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) domain.Identity {
	id, _ := ctx.Value(identityKey{}).(domain.Identity)
	return id
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireOwner gates a route to authenticated platform owners.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()).(domain.OwnerIdentity); !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin gates a route to platform owners with the ADMIN role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context()).(domain.OwnerIdentity)
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		if id.Owner.Role != domain.OwnerRoleAdmin {
			httpx.WriteError(w, http.StatusForbidden, "access_denied", "Platform admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authorizeProjectManage enforces the management permission for the project
// in the {id} path segment. Returns false after writing the response when
// the caller may not proceed.
func authorizeProjectManage(w http.ResponseWriter, r *http.Request, perms *service.PermissionService, projectID string) bool {
	id := IdentityFromContext(r.Context())
	if !domain.IsAuthenticated(id) {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return false
	}

	ok, err := perms.CanManageProject(r.Context(), id, projectID)
	if err != nil {
		writeServiceError(w, r, err)
		return false
	}
	if !ok {
		httpx.WriteError(w, http.StatusForbidden, "access_denied", "You do not manage this project")
		return false
	}
	return true
}
