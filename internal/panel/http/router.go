package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/service"
	"github.com/solidhost/panel/internal/panel/store"
	"github.com/solidhost/panel/pkg/httpx"
	"github.com/solidhost/panel/pkg/jwtx"
	"github.com/solidhost/panel/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec        *jwtx.Codec
	trustProxy   bool
	secureCookie bool
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	AuthService       *service.AuthService
	UserService       *service.UserService
	RoleService       *service.RoleService
	RoleChangeService *service.RoleChangeService
	AllowedIPService  *service.AllowedIPService
	AuditService      *service.AuditService
	TwoFactorService  *service.TwoFactorService
}

func NewRouter(
	codec *jwtx.Codec,
	trustProxy, secureCookie bool,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		codec:        codec,
		trustProxy:   trustProxy,
		secureCookie: secureCookie,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerRoles()
	r.registerAllowedIPs()
	r.registerTwoFactor()
	r.registerLogs()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured builds the standard authenticated chain: token validation, then
// user load plus IP allow-list gate, then the given rate limit by user.
func (r *Router) secured(h http.Handler, limit httpx.RateLimitConfig, extra ...httpx.Middleware) http.Handler {
	mw := []httpx.Middleware{
		httpx.SessionAuthn(r.codec),
		RequireUser(r.AuthService, r.trustProxy),
	}
	mw = append(mw, extra...)
	mw = append(mw, httpx.RateLimitByUser(limit))
	return httpx.Chain(h, mw...)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService:  r.AuthService,
		UserService:  r.UserService,
		TrustProxy:   r.trustProxy,
		SecureCookie: r.secureCookie,
	}

	// Credential endpoints carry strict per-IP limits (brute force prevention).
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Logout only clears the cookie; no authentication required so an
	// expired session can still log out cleanly.
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{
		UserService:       r.UserService,
		RoleService:       r.RoleService,
		RoleChangeService: r.RoleChangeService,
	}

	r.Mux.Handle("GET /v1/users/me", r.secured(http.HandlerFunc(h.HandleMe), httpx.LenientLimit))
	r.Mux.Handle("PATCH /v1/users/me", r.secured(http.HandlerFunc(h.HandleUpdateProfile), httpx.ModerateLimit))
	r.Mux.Handle("PUT /v1/users/me/password", r.secured(http.HandlerFunc(h.HandleChangePassword), httpx.StrictLimit))

	// The directory listing is admin-only; single-user reads allow admins
	// or the subject themselves (checked in the handler).
	r.Mux.Handle("GET /v1/users",
		r.secured(http.HandlerFunc(h.HandleList), httpx.LenientLimit, RequireRole(domain.RoleAdmin)))
	r.Mux.Handle("POST /v1/users",
		r.secured(http.HandlerFunc(h.HandleCreate), httpx.ModerateLimit, RequireRole(domain.RoleAdmin)))
	r.Mux.Handle("GET /v1/users/{id}",
		r.secured(http.HandlerFunc(h.HandleGet), httpx.LenientLimit))

	// Role reassignment is reserved for the super admin; deletion for admins.
	r.Mux.Handle("PUT /v1/users/role",
		r.secured(http.HandlerFunc(h.HandleChangeRole), httpx.ModerateLimit, RequireRole(domain.RoleSuperAdmin)))
	r.Mux.Handle("DELETE /v1/users/{id}",
		r.secured(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit, RequireRole(domain.RoleAdmin)))
}

func (r *Router) registerRoles() {
	h := &RolesHandler{RoleService: r.RoleService}

	r.Mux.Handle("GET /v1/roles",
		r.secured(http.HandlerFunc(h.HandleList), httpx.LenientLimit, RequireRole(domain.RoleModerator)))
	r.Mux.Handle("GET /v1/roles/{id}",
		r.secured(http.HandlerFunc(h.HandleGet), httpx.LenientLimit, RequireRole(domain.RoleModerator)))

	// Catalog mutation is restricted to the super admin.
	r.Mux.Handle("POST /v1/roles",
		r.secured(http.HandlerFunc(h.HandleCreate), httpx.ModerateLimit, RequireRole(domain.RoleSuperAdmin)))
	r.Mux.Handle("DELETE /v1/roles/{id}",
		r.secured(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit, RequireRole(domain.RoleSuperAdmin)))
}

func (r *Router) registerAllowedIPs() {
	h := &AllowedIPsHandler{AllowedIPService: r.AllowedIPService}

	r.Mux.Handle("GET /v1/users/me/allowed-ips",
		r.secured(http.HandlerFunc(h.HandleList), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/users/me/allowed-ips",
		r.secured(http.HandlerFunc(h.HandleAdd), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/users/me/allowed-ips/{ip}",
		r.secured(http.HandlerFunc(h.HandleRemove), httpx.ModerateLimit))
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{TwoFactorService: r.TwoFactorService}

	r.Mux.Handle("POST /v1/users/me/2fa/enroll",
		r.secured(http.HandlerFunc(h.HandleEnroll), httpx.ModerateLimit))

	// Code verification endpoints get strict limits (prevent brute force of
	// TOTP codes).
	r.Mux.Handle("POST /v1/users/me/2fa/activate",
		r.secured(http.HandlerFunc(h.HandleActivate), httpx.StrictLimit))
	r.Mux.Handle("DELETE /v1/users/me/2fa",
		r.secured(http.HandlerFunc(h.HandleDisable), httpx.StrictLimit))
}

func (r *Router) registerLogs() {
	h := &LogsHandler{AuditService: r.AuditService}

	r.Mux.Handle("GET /v1/logs",
		r.secured(http.HandlerFunc(h.HandleQuery), httpx.LenientLimit, RequireRole(domain.RoleAdmin)))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
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
}
