package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/store"
	"github.com/solidhost/panel/internal/panel/store/drivers/sqlite"
	"github.com/solidhost/panel/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse battery staple"

// newTestStore opens a throwaway file-backed database with migrations
// applied. A file (not :memory:) because the pool may open more than one
// connection and every connection must see the same database.
func newTestStore(t *testing.T) store.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(t.TempDir(), "panel.db"))
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// seedUser inserts a user with the given role directly, keeping the role
// counter in step the same way the registration path does.
func seedUser(t *testing.T, st store.Store, email string, roleID int64) domain.User {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	var id int64
	err = st.WithTx(ctx, func(tx store.Tx) error {
		var err error
		id, err = tx.Users().CreateUser(ctx, domain.User{
			Phone:        "+61" + email, // cheap uniqueness
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func roleCount(t *testing.T, st store.Store, roleID int64) int64 {
	t.Helper()
	role, err := st.Roles().GetRoleByID(context.Background(), roleID)
	require.NoError(t, err)
	return role.CountUsers
}

func auditRows(t *testing.T, st store.Store, f domain.LogFilter) []domain.UserLog {
	t.Helper()
	rows, err := st.UserLogs().Query(context.Background(), f, 100, 0)
	require.NoError(t, err)
	return rows
}
