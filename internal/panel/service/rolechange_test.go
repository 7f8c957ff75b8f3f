package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/notify"
	"github.com/stretchr/testify/require"
)

func TestChangeRoleHappyPath(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newTestStore(t)
	svc := &RoleChangeService{Store: st, Notifier: notify.Nop{}}

	admin := seedUser(t, st, "admin@example.com", domain.RoleAdmin)
	target := seedUser(t, st, "user@example.com", domain.RoleUser)

	userCountBefore := roleCount(t, st, domain.RoleUser)
	modCountBefore := roleCount(t, st, domain.RoleModerator)

	result, err := svc.ChangeRole(ctx, admin, target.ID, domain.RoleModerator)
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.Equal(t, target.ID, result.UserID)
	require.Equal(t, domain.RoleUser, result.OldRoleID)
	require.Equal(t, domain.RoleModerator, result.NewRoleID)
	require.Equal(t, "moderator", result.RoleName)

	// Role reference moved.
	updated, err := st.Users().GetUserByID(ctx, target.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleModerator, updated.RoleID)

	// Both counters moved in step.
	require.Equal(t, userCountBefore-1, roleCount(t, st, domain.RoleUser))
	require.Equal(t, modCountBefore+1, roleCount(t, st, domain.RoleModerator))

	// Audit row captured actor, subject and both role ids.
	rows := auditRows(t, st, domain.LogFilter{UserID: target.ID, ActionType: domain.ActionRoleChange})
	require.Len(t, rows, 1)
	require.Equal(t, admin.ID, rows[0].ChangedBy)
	require.Equal(t, strconv.FormatInt(domain.RoleUser, 10), rows[0].OldValue)
	require.Equal(t, strconv.FormatInt(domain.RoleModerator, 10), rows[0].NewValue)
}

func TestChangeRoleNoOp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newTestStore(t)
	svc := &RoleChangeService{Store: st, Notifier: notify.Nop{}}

	admin := seedUser(t, st, "admin@example.com", domain.RoleAdmin)
	target := seedUser(t, st, "user@example.com", domain.RoleUser)

	countBefore := roleCount(t, st, domain.RoleUser)

	result, err := svc.ChangeRole(ctx, admin, target.ID, domain.RoleUser)
	require.NoError(t, err)
	require.False(t, result.Changed)
	require.Equal(t, domain.RoleUser, result.OldRoleID)
	require.Equal(t, domain.RoleUser, result.NewRoleID)

	// No writes happened: counter untouched, no audit row.
	require.Equal(t, countBefore, roleCount(t, st, domain.RoleUser))
	require.Empty(t, auditRows(t, st, domain.LogFilter{UserID: target.ID, ActionType: domain.ActionRoleChange}))
}

func TestChangeRoleProtections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newTestStore(t)
	svc := &RoleChangeService{Store: st, Notifier: notify.Nop{}}

	super := seedUser(t, st, "root@example.com", domain.RoleSuperAdmin)
	admin := seedUser(t, st, "admin@example.com", domain.RoleAdmin)
	target := seedUser(t, st, "user@example.com", domain.RoleUser)

	t.Run("no self change", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, admin, admin.ID, domain.RoleModerator)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("super admin role cannot be assigned", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, admin, target.ID, domain.RoleSuperAdmin)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("super admin cannot be demoted", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, admin, super.ID, domain.RoleUser)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown target user", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, admin, 99999, domain.RoleModerator)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, admin, target.ID, 99999)
		require.ErrorIs(t, err, ErrNotFound)
	})

	// None of the rejected attempts left a trace.
	require.Empty(t, auditRows(t, st, domain.LogFilter{ActionType: domain.ActionRoleChange}))
}

func TestChangeRoleCountersStayConsistent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newTestStore(t)
	svc := &RoleChangeService{Store: st, Notifier: notify.Nop{}}

	admin := seedUser(t, st, "admin@example.com", domain.RoleAdmin)
	target := seedUser(t, st, "user@example.com", domain.RoleUser)

	// Bounce the user between roles repeatedly; the counters must always
	// equal the actual number of users holding each role.
	sequence := []int64{
		domain.RoleModerator, domain.RoleUser, domain.RoleGuest,
		domain.RoleUser, domain.RoleModerator, domain.RoleGuest,
		domain.RoleUser,
	}
	for _, roleID := range sequence {
		_, err := svc.ChangeRole(ctx, admin, target.ID, roleID)
		require.NoError(t, err)
	}

	require.Equal(t, int64(1), roleCount(t, st, domain.RoleUser)) // target ends here
	require.Equal(t, int64(0), roleCount(t, st, domain.RoleModerator))
	require.Equal(t, int64(0), roleCount(t, st, domain.RoleGuest))
	require.Equal(t, int64(1), roleCount(t, st, domain.RoleAdmin))

	// One audit row per applied change.
	rows := auditRows(t, st, domain.LogFilter{UserID: target.ID, ActionType: domain.ActionRoleChange})
	require.Len(t, rows, len(sequence))

	// Newest first: the most recent row records the final move.
	require.Equal(t, strconv.FormatInt(domain.RoleUser, 10), rows[0].NewValue)
}

func TestChangeRoleConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newTestStore(t)
	svc := &RoleChangeService{Store: st, Notifier: notify.Nop{}}

	admin := seedUser(t, st, "admin@example.com", domain.RoleAdmin)

	const n = 6
	targets := make([]domain.User, n)
	for i := range targets {
		targets[i] = seedUser(t, st, fmt.Sprintf("user%d@example.com", i), domain.RoleUser)
	}

	// Promote all targets at once. Each change runs in its own transaction;
	// no update may be lost.
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := svc.ChangeRole(ctx, admin, id, domain.RoleModerator)
			errs <- err
		}(target.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Counters agree with the actual role assignments.
	require.Equal(t, int64(n), roleCount(t, st, domain.RoleModerator))
	require.Equal(t, int64(0), roleCount(t, st, domain.RoleUser))
	for _, target := range targets {
		u, err := st.Users().GetUserByID(ctx, target.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleModerator, u.RoleID)
	}

	rows := auditRows(t, st, domain.LogFilter{ActionType: domain.ActionRoleChange})
	require.Len(t, rows, n)
}

// TestIdentityLifecycleScenario walks a full login, promotion and blocked
// demotion through the services, checking counters and the audit trail at
// each step.
func TestIdentityLifecycleScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newTestStore(t)
	auth := &AuthService{Store: st, Codec: testCodec(), Notifier: notify.Nop{}}
	roles := &RoleChangeService{Store: st, Notifier: notify.Nop{}}

	super := seedUser(t, st, "root@example.com", domain.RoleSuperAdmin)
	u1 := seedUser(t, st, "u1@example.com", domain.RoleUser)

	// U1 logs in without any allow-list restrictions.
	result, err := auth.Login(ctx, u1.Email, testPassword, "", "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)

	loginRows := auditRows(t, st, domain.LogFilter{UserID: u1.ID, ActionType: domain.ActionLogin})
	require.Len(t, loginRows, 1)
	require.Equal(t, "10.0.0.1", loginRows[0].NewValue)

	// The super admin promotes U1 to admin.
	userBefore := roleCount(t, st, domain.RoleUser)
	adminBefore := roleCount(t, st, domain.RoleAdmin)

	change, err := roles.ChangeRole(ctx, super, u1.ID, domain.RoleAdmin)
	require.NoError(t, err)
	require.True(t, change.Changed)
	require.Equal(t, userBefore-1, roleCount(t, st, domain.RoleUser))
	require.Equal(t, adminBefore+1, roleCount(t, st, domain.RoleAdmin))

	changeRows := auditRows(t, st, domain.LogFilter{UserID: u1.ID, ActionType: domain.ActionRoleChange})
	require.Len(t, changeRows, 1)
	require.Equal(t, super.ID, changeRows[0].ChangedBy)

	// Promoting U1 to super admin is refused and changes nothing.
	_, err = roles.ChangeRole(ctx, super, u1.ID, domain.RoleSuperAdmin)
	require.ErrorIs(t, err, ErrForbidden)

	after, err := st.Users().GetUserByID(ctx, u1.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, after.RoleID)
	require.Equal(t, adminBefore+1, roleCount(t, st, domain.RoleAdmin))
	require.Len(t, auditRows(t, st, domain.LogFilter{UserID: u1.ID, ActionType: domain.ActionRoleChange}), 1)
}
