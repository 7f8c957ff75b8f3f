package service

import (
	"context"
	"testing"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/stretchr/testify/require"
)

func TestRoleCatalogSeed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newTestStore(t)
	svc := &RoleService{Store: st}

	roles, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 5)

	require.Equal(t, "super-admin", roles[0].Name)
	require.Equal(t, "guest", roles[4].Name)
	for _, role := range roles {
		require.Zero(t, role.CountUsers, "seeded roles start with no members")
	}
}

func TestCreateRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newTestStore(t)
	svc := &RoleService{Store: st}

	role, err := svc.Create(ctx, "billing", "Billing team access")
	require.NoError(t, err)
	require.Greater(t, role.ID, domain.RoleGuest)
	require.False(t, role.Protected())
	require.Zero(t, role.CountUsers)

	t.Run("duplicate name", func(t *testing.T) {
		_, err := svc.Create(ctx, "billing", "again")
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := svc.Create(ctx, "   ", "")
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestDeleteRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newTestStore(t)
	svc := &RoleService{Store: st}

	t.Run("protected system roles are refused", func(t *testing.T) {
		for _, id := range []int64{domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleModerator, domain.RoleUser} {
			require.ErrorIs(t, svc.Delete(ctx, id), ErrForbidden)
		}
	})

	t.Run("guest role is not protected", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, domain.RoleGuest))
	})

	t.Run("role with members is refused", func(t *testing.T) {
		role, err := svc.Create(ctx, "billing", "")
		require.NoError(t, err)
		seedUser(t, st, "billing@example.com", role.ID)

		require.ErrorIs(t, svc.Delete(ctx, role.ID), ErrConflict)
	})

	t.Run("unknown role", func(t *testing.T) {
		require.ErrorIs(t, svc.Delete(ctx, 99999), ErrNotFound)
	})
}
