package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/service"
	"github.com/solidhost/panel/pkg/httpx"
	"github.com/solidhost/panel/pkg/slogx"
)

type ctxKey string

const ctxKeyUser ctxKey = "current_user"

// UserFromCtx returns the fully loaded current user. Only valid after the
// RequireUser middleware has run.
func UserFromCtx(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(ctxKeyUser).(domain.User)
	return u, ok
}

// RequireUser loads the authenticated subject's user record and applies the
// IP allow-list gate. Runs after SessionAuthn: the subject id is already
// validated, so a blocked address here is 403, not 401.
func RequireUser(auth *service.AuthService, trustProxy bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			subjectID := httpx.SubjectIDFromCtx(ctx)
			if subjectID == 0 {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
				return
			}

			user, err := auth.GetUser(ctx, subjectID)
			if err != nil {
				if errors.Is(err, service.ErrUnauthorized) {
					httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "session subject no longer exists")
					return
				}
				log.Error("loading current user failed", "user_id", subjectID, "err", err)
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to load user")
				return
			}

			sourceIP := httpx.ClientIP(r, trustProxy)
			if err := auth.IPAllowed(ctx, user.ID, sourceIP); err != nil {
				if errors.Is(err, service.ErrIPNotAllowed) {
					log.Warn("request blocked by allow-list", "user_id", user.ID, "ip", sourceIP)
					httpx.WriteError(w, http.StatusForbidden, "ip_not_allowed", err.Error())
					return
				}
				log.Error("allow-list check failed", "user_id", user.ID, "err", err)
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to verify source address")
				return
			}

			ctx = context.WithValue(ctx, ctxKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route to users holding at least the given role.
// Role ids are ordered by privilege, so "at least moderator" means
// RoleID <= RoleModerator.
func RequireRole(maxRoleID int64) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromCtx(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
				return
			}
			if user.RoleID > maxRoleID {
				httpx.WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
