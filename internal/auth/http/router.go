package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/authplatform/passage/internal/auth/service"
	"github.com/authplatform/passage/internal/auth/store"
	"github.com/authplatform/passage/pkg/httpx"
	"github.com/authplatform/passage/pkg/obsx"
	"github.com/authplatform/passage/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AuthService       *service.AuthService
	PermissionService *service.PermissionService
	OwnerService      *service.OwnerService
	ProjectService    *service.ProjectService
	RoleService       *service.RoleService
	EndUserService    *service.EndUserService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
	}
}

// ApplyRoutes registers every route. Call after the service fields are set.
func (r *Router) ApplyRoutes() {
	// Global chain: request logging, metrics, then the authentication
	// dispatcher so every handler sees a resolved identity (or none).
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		obsx.Instrument,
		AuthnMiddleware(r.AuthService),
	}

	r.registerPlatformAuth()
	r.registerPlatformProfile()
	r.registerAdmin()
	r.registerProjects()
	r.registerRoles()
	r.registerEndUserAdmin()
	r.registerTenant()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerPlatformAuth() {
	h := &PlatformAuthHandler{Owners: r.OwnerService}

	// Credential endpoints get the strict profile to slow brute force.
	r.Mux.Handle("POST /v1/platform/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("GET /v1/platform/auth/verify-email",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyEmail),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/platform/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/platform/auth/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/platform/auth/reset-password",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/platform/auth/change-password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			RequireOwner,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPlatformProfile() {
	h := &ProfileHandler{Owners: r.OwnerService}

	r.Mux.Handle("GET /v1/platform/me",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			RequireOwner,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/platform/me",
		httpx.Chain(http.HandlerFunc(h.HandlePatch),
			RequireOwner,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{Owners: r.OwnerService}

	r.Mux.Handle("GET /v1/admin/owners",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			RequireAdmin,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/admin/owners/{id}/lock",
		httpx.Chain(http.HandlerFunc(h.HandleSetLock),
			RequireAdmin,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/admin/owners/{id}/role",
		httpx.Chain(http.HandlerFunc(h.HandleSetRole),
			RequireAdmin,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerProjects() {
	h := &ProjectsHandler{Projects: r.ProjectService, Perms: r.PermissionService}

	r.Mux.Handle("POST /v1/projects",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			RequireOwner,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/projects",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			RequireOwner,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/projects/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/projects/{id}",
		httpx.Chain(http.HandlerFunc(h.HandlePatch),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerRoles() {
	h := &RolesHandler{Roles: r.RoleService, Perms: r.PermissionService}

	r.Mux.Handle("GET /v1/projects/{id}/roles",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/projects/{id}/roles",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/projects/{id}/roles/{roleID}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/projects/{id}/roles/{roleID}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerEndUserAdmin() {
	h := &EndUsersAdminHandler{EndUsers: r.EndUserService, Perms: r.PermissionService}

	r.Mux.Handle("GET /v1/projects/{id}/users",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/projects/{id}/users/{userID}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/projects/{id}/users/{userID}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/projects/{id}/users/{userID}/lock",
		httpx.Chain(http.HandlerFunc(h.HandleSetLock),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PUT /v1/projects/{id}/users/{userID}/roles",
		httpx.Chain(http.HandlerFunc(h.HandleReplaceRoles),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/projects/{id}/users/{userID}/roles",
		httpx.Chain(http.HandlerFunc(h.HandleAssignRole),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/projects/{id}/users/{userID}/roles/{roleID}",
		httpx.Chain(http.HandlerFunc(h.HandleRemoveRole),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerTenant() {
	authHandler := &TenantAuthHandler{Projects: r.ProjectService, EndUsers: r.EndUserService}
	profileHandler := &TenantProfileHandler{Projects: r.ProjectService, EndUsers: r.EndUserService}

	r.Mux.Handle("POST /v1/p/{apiKey}/auth/register",
		httpx.Chain(http.HandlerFunc(authHandler.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("GET /v1/p/{apiKey}/auth/verify-email",
		httpx.Chain(http.HandlerFunc(authHandler.HandleVerifyEmail),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/p/{apiKey}/auth/login",
		httpx.Chain(http.HandlerFunc(authHandler.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/p/{apiKey}/auth/forgot-password",
		httpx.Chain(http.HandlerFunc(authHandler.HandleForgotPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/p/{apiKey}/auth/reset-password",
		httpx.Chain(http.HandlerFunc(authHandler.HandleResetPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Relying-party token checks run hot; IP limiting at the public tier.
	r.Mux.Handle("POST /v1/p/{apiKey}/auth/validate",
		httpx.Chain(http.HandlerFunc(authHandler.HandleValidate),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	r.Mux.Handle("GET /v1/p/{apiKey}/me",
		httpx.Chain(http.HandlerFunc(profileHandler.HandleGet),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/p/{apiKey}/me",
		httpx.Chain(http.HandlerFunc(profileHandler.HandlePatch),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/p/{apiKey}/me/change-password",
		httpx.Chain(http.HandlerFunc(profileHandler.HandleChangePassword),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", obsx.Handler())
}
