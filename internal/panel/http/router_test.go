package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/notify"
	"github.com/solidhost/panel/internal/panel/service"
	"github.com/solidhost/panel/internal/panel/store"
	"github.com/solidhost/panel/internal/panel/store/drivers/sqlite"
	"github.com/solidhost/panel/pkg/cryptox"
	"github.com/solidhost/panel/pkg/httpx"
	"github.com/solidhost/panel/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse battery staple"

func newTestRouter(t *testing.T) (*Router, store.Store) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(t.TempDir(), "panel.db"))
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec := &jwtx.Codec{Secret: []byte("test-secret"), TTL: time.Hour}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRouter(codec, true, false, "test", st, logger)
	r.AuthService = &service.AuthService{Store: st, Codec: codec, Notifier: notify.Nop{}}
	r.UserService = &service.UserService{Store: st}
	r.RoleService = &service.RoleService{Store: st}
	r.RoleChangeService = &service.RoleChangeService{Store: st, Notifier: notify.Nop{}}
	r.AllowedIPService = &service.AllowedIPService{Store: st}
	r.AuditService = &service.AuditService{Store: st}
	r.TwoFactorService = &service.TwoFactorService{Store: st, Issuer: "test"}
	r.ApplyRoutes()
	return r, st
}

func seedUser(t *testing.T, st store.Store, email string, roleID int64) domain.User {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	var id int64
	err = st.WithTx(ctx, func(tx store.Tx) error {
		var err error
		id, err = tx.Users().CreateUser(ctx, domain.User{
			Phone:        "+61" + email,
			Email:        email,
			FirstName:    "Test",
			LastName:     "User",
			PasswordHash: hash,
			RoleID:       roleID,
		})
		if err != nil {
			return err
		}
		return tx.Roles().IncrementCount(ctx, roleID)
	})
	require.NoError(t, err)

	user, err := st.Users().GetUserByID(ctx, id)
	require.NoError(t, err)
	return user
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func withToken(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: httpx.SessionCookieName, Value: token})
	}
}

func login(t *testing.T, r http.Handler, email string) (string, UserResponse) {
	t.Helper()

	rec := doJSON(t, r, "POST", "/v1/auth/login", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string       `json:"token"`
		User  UserResponse `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	// The session cookie rides along with the body token.
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpx.SessionCookieName {
			found = true
			require.Equal(t, resp.Token, c.Value)
			require.True(t, c.HttpOnly)
		}
	}
	require.True(t, found, "login must set the session cookie")

	return resp.Token, resp.User
}

func TestRegisterAndLoginFlow(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	rec := doJSON(t, r, "POST", "/v1/auth/register", map[string]string{
		"phone":      "+61400000001",
		"email":      "alice@example.com",
		"password":   testPassword,
		"first_name": "Alice",
		"last_name":  "Smith",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, domain.RoleUser, created.RoleID)

	token, user := login(t, r, "alice@example.com")
	require.Equal(t, created.ID, user.ID)

	rec = doJSON(t, r, "GET", "/v1/users/me", nil, withToken(token))
	require.Equal(t, http.StatusOK, rec.Code)

	var me UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.Equal(t, "alice@example.com", me.Email)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	t.Run("bad email", func(t *testing.T) {
		rec := doJSON(t, r, "POST", "/v1/auth/register", map[string]string{
			"phone":      "+61400000001",
			"email":      "not-an-email",
			"password":   testPassword,
			"first_name": "Alice",
			"last_name":  "Smith",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("short password", func(t *testing.T) {
		rec := doJSON(t, r, "POST", "/v1/auth/register", map[string]string{
			"phone":      "+61400000001",
			"email":      "alice@example.com",
			"password":   "short",
			"first_name": "Alice",
			"last_name":  "Smith",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := doJSON(t, r, "POST", "/v1/auth/register", map[string]any{
			"phone":      "+61400000001",
			"email":      "alice@example.com",
			"password":   testPassword,
			"first_name": "Alice",
			"last_name":  "Smith",
			"role_id":    1,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code, "role must never be accepted at registration")
	})
}

func TestLoginFailures(t *testing.T) {
	t.Parallel()

	r, st := newTestRouter(t)
	seedUser(t, st, "alice@example.com", domain.RoleUser)

	rec := doJSON(t, r, "POST", "/v1/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body httpx.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid_credentials", body.Error)
}

func TestAuthenticationRequired(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	t.Run("no token", func(t *testing.T) {
		rec := doJSON(t, r, "GET", "/v1/users/me", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := doJSON(t, r, "GET", "/v1/users/me", nil, withToken("garbage"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := &jwtx.Codec{Secret: []byte("test-secret"), TTL: -time.Minute}
		token, err := expired.Issue(1, time.Now().UTC())
		require.NoError(t, err)

		rec := doJSON(t, r, "GET", "/v1/users/me", nil, withToken(token))
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var body httpx.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "session token expired", body.Detail)
	})
}

func TestRoleGating(t *testing.T) {
	t.Parallel()

	r, st := newTestRouter(t)
	user := seedUser(t, st, "user@example.com", domain.RoleUser)
	admin := seedUser(t, st, "admin@example.com", domain.RoleAdmin)

	userToken, _ := login(t, r, "user@example.com")
	adminToken, _ := login(t, r, "admin@example.com")

	t.Run("regular user cannot read logs", func(t *testing.T) {
		rec := doJSON(t, r, "GET", "/v1/logs", nil, withToken(userToken))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin can read logs", func(t *testing.T) {
		rec := doJSON(t, r, "GET", "/v1/logs", nil, withToken(adminToken))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("regular user cannot list users", func(t *testing.T) {
		rec := doJSON(t, r, "GET", "/v1/users", nil, withToken(userToken))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin creates an account with a generated password", func(t *testing.T) {
		payload := map[string]string{
			"phone":      "+61400009999",
			"email":      "hire@example.com",
			"first_name": "New",
		}

		rec := doJSON(t, r, "POST", "/v1/users", payload, withToken(userToken))
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = doJSON(t, r, "POST", "/v1/users", payload, withToken(adminToken))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var created struct {
			User     UserResponse `json:"user"`
			Password string       `json:"password"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		require.Equal(t, "hire@example.com", created.User.Email)
		require.NotEmpty(t, created.Password)
	})

	t.Run("user can read own record by id but not others", func(t *testing.T) {
		rec := doJSON(t, r, "GET", fmt.Sprintf("/v1/users/%d", user.ID), nil, withToken(userToken))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, r, "GET", fmt.Sprintf("/v1/users/%d", admin.ID), nil, withToken(userToken))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin cannot create roles", func(t *testing.T) {
		rec := doJSON(t, r, "POST", "/v1/roles", map[string]string{"name": "billing"}, withToken(adminToken))
		require.Equal(t, http.StatusForbidden, rec.Code, "role creation is super-admin only")
	})
}

func TestChangeRoleEndpoint(t *testing.T) {
	t.Parallel()

	r, st := newTestRouter(t)
	target := seedUser(t, st, "user@example.com", domain.RoleUser)
	seedUser(t, st, "root@example.com", domain.RoleSuperAdmin)
	seedUser(t, st, "admin@example.com", domain.RoleAdmin)

	superToken, super := login(t, r, "root@example.com")
	adminToken, _ := login(t, r, "admin@example.com")

	t.Run("only the super admin may reassign roles", func(t *testing.T) {
		rec := doJSON(t, r, "PUT", "/v1/users/role", map[string]int64{
			"user_id":     target.ID,
			"new_role_id": domain.RoleModerator,
		}, withToken(adminToken))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("happy path", func(t *testing.T) {
		rec := doJSON(t, r, "PUT", "/v1/users/role", map[string]int64{
			"user_id":     target.ID,
			"new_role_id": domain.RoleModerator,
		}, withToken(superToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result service.RoleChangeResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		require.True(t, result.Changed)
		require.Equal(t, "moderator", result.RoleName)
	})

	t.Run("self change is forbidden", func(t *testing.T) {
		rec := doJSON(t, r, "PUT", "/v1/users/role", map[string]int64{
			"user_id":     super.ID,
			"new_role_id": domain.RoleModerator,
		}, withToken(superToken))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("assigning super admin is forbidden", func(t *testing.T) {
		rec := doJSON(t, r, "PUT", "/v1/users/role", map[string]int64{
			"user_id":     target.ID,
			"new_role_id": domain.RoleSuperAdmin,
		}, withToken(superToken))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestIPGateOnAuthenticatedRoutes(t *testing.T) {
	t.Parallel()

	r, st := newTestRouter(t)
	seedUser(t, st, "alice@example.com", domain.RoleUser)
	token, _ := login(t, r, "alice@example.com")

	// Restrict the account to one address.
	rec := doJSON(t, r, "POST", "/v1/users/me/allowed-ips", map[string]string{
		"ip_address":  "203.0.113.7",
		"description": "home office",
	}, withToken(token), func(req *http.Request) {
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	t.Run("listed address passes", func(t *testing.T) {
		rec := doJSON(t, r, "GET", "/v1/users/me", nil, withToken(token), func(req *http.Request) {
			req.Header.Set("X-Forwarded-For", "203.0.113.7")
		})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unlisted address gets 403 despite valid token", func(t *testing.T) {
		rec := doJSON(t, r, "GET", "/v1/users/me", nil, withToken(token), func(req *http.Request) {
			req.Header.Set("X-Forwarded-For", "198.51.100.99")
		})
		require.Equal(t, http.StatusForbidden, rec.Code)

		var body httpx.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "ip_not_allowed", body.Error)
	})
}

func TestLogoutClearsCookie(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	rec := doJSON(t, r, "POST", "/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpx.SessionCookieName {
			cleared = true
			require.Empty(t, c.Value)
			require.Negative(t, c.MaxAge)
		}
	}
	require.True(t, cleared)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	rec := doJSON(t, r, "GET", "/livez", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, "GET", "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "ok", health.Checks.Database)
}
