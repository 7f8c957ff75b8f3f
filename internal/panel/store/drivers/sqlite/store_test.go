package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/store"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(t.TempDir(), "panel.db"))
	st, err := NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRoleCounterClampsAtZero(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newStore(t)

	// Decrementing a zero counter is a silent no-op, never negative.
	require.NoError(t, st.Roles().DecrementCount(ctx, domain.RoleUser))

	role, err := st.Roles().GetRoleByID(ctx, domain.RoleUser)
	require.NoError(t, err)
	require.Zero(t, role.CountUsers)

	require.NoError(t, st.Roles().IncrementCount(ctx, domain.RoleUser))
	require.NoError(t, st.Roles().DecrementCount(ctx, domain.RoleUser))
	require.NoError(t, st.Roles().DecrementCount(ctx, domain.RoleUser))

	role, err = st.Roles().GetRoleByID(ctx, domain.RoleUser)
	require.NoError(t, err)
	require.Zero(t, role.CountUsers)
}

func TestUniqueConstraintsMapToConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newStore(t)

	u := domain.User{
		Phone:        "+61400000001",
		Email:        "alice@example.com",
		FirstName:    "Alice",
		LastName:     "Smith",
		PasswordHash: "x",
		RoleID:       domain.RoleUser,
	}
	_, err := st.Users().CreateUser(ctx, u)
	require.NoError(t, err)

	dup := u
	dup.Phone = "+61400000002"
	_, err = st.Users().CreateUser(ctx, dup)
	require.ErrorIs(t, err, store.ErrConflict)

	_, err = st.Roles().CreateRole(ctx, domain.Role{Name: "admin"})
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newStore(t)
	boom := errors.New("boom")

	err := st.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Users().CreateUser(ctx, domain.User{
			Phone:        "+61400000001",
			Email:        "alice@example.com",
			FirstName:    "Alice",
			LastName:     "Smith",
			PasswordHash: "x",
			RoleID:       domain.RoleUser,
		})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.Users().GetUserByEmail(ctx, "alice@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetUserNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newStore(t)

	_, err := st.Users().GetUserByID(ctx, 12345)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.Users().GetUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}
