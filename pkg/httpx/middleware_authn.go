package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/solidhost/panel/pkg/jwtx"
	"github.com/solidhost/panel/pkg/slogx"
)

// SessionCookieName is the HTTP-only cookie holding the signed session
// token. Set at login, cleared at logout.
const SessionCookieName = "users_access_token"

// SessionAuthn validates the session token on every request and injects the
// subject's user id into the request context. The token is read from the
// session cookie first, then from an Authorization: Bearer header for API
// clients. Requests without a valid token get a 401.
func SessionAuthn(codec *jwtx.Codec) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := tokenFromRequest(r)
			if raw == "" {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session token")
				return
			}

			subjectID, err := codec.Validate(raw, time.Now().UTC())
			if err != nil {
				switch {
				case errors.Is(err, jwtx.ErrTokenExpired):
					WriteError(w, http.StatusUnauthorized, "unauthorized", "session token expired")
				default:
					WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid session token")
					log.Warn("session token rejected", "err", err)
				}
				return
			}

			ctx = context.WithValue(ctx, CtxKeySubjectID, subjectID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
	}
	return ""
}
