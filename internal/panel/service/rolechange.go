package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/notify"
	"github.com/solidhost/panel/internal/panel/store"
)

// RoleChangeService owns the role reassignment workflow: validation,
// the transactional apply (role reference, both counters, audit row) and
// the post-commit event.
type RoleChangeService struct {
	Store    store.Store
	Notifier notify.Notifier
}

// RoleChangeResult describes an applied (or no-op) role change.
type RoleChangeResult struct {
	UserID    int64  `json:"user_id"`
	OldRoleID int64  `json:"old_role_id"`
	NewRoleID int64  `json:"new_role_id"`
	RoleName  string `json:"role_name"`
	Changed   bool   `json:"changed"`
}

// ChangeRole moves targetID to newRoleID on behalf of actor.
//
// Validation order is fixed: self-change, super-admin assignment,
// super-admin demotion, then role existence. A change to the role the user
// already holds short-circuits as a successful no-op with no writes. The
// apply itself is a single transaction so the counters can never drift from
// the actual role references.
func (s *RoleChangeService) ChangeRole(ctx context.Context, actor domain.User, targetID, newRoleID int64) (RoleChangeResult, error) {
	if actor.ID == targetID {
		return RoleChangeResult{}, fmt.Errorf("%w: cannot change your own role", ErrForbidden)
	}
	if newRoleID == domain.RoleSuperAdmin {
		return RoleChangeResult{}, fmt.Errorf("%w: the super admin role cannot be assigned", ErrForbidden)
	}

	target, err := s.Store.Users().GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RoleChangeResult{}, fmt.Errorf("%w: user %d", ErrNotFound, targetID)
		}
		return RoleChangeResult{}, fmt.Errorf("looking up target user: %w", err)
	}
	if target.RoleID == domain.RoleSuperAdmin {
		return RoleChangeResult{}, fmt.Errorf("%w: the super admin cannot be demoted", ErrForbidden)
	}

	newRole, err := s.Store.Roles().GetRoleByID(ctx, newRoleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RoleChangeResult{}, fmt.Errorf("%w: role %d", ErrNotFound, newRoleID)
		}
		return RoleChangeResult{}, fmt.Errorf("looking up role: %w", err)
	}

	if target.RoleID == newRoleID {
		return RoleChangeResult{
			UserID:    targetID,
			OldRoleID: target.RoleID,
			NewRoleID: newRoleID,
			RoleName:  newRole.Name,
			Changed:   false,
		}, nil
	}

	oldRoleID := target.RoleID
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdateRole(ctx, targetID, newRoleID); err != nil {
			return fmt.Errorf("updating role reference: %w", err)
		}
		if err := tx.Roles().DecrementCount(ctx, oldRoleID); err != nil {
			return fmt.Errorf("decrementing old role counter: %w", err)
		}
		if err := tx.Roles().IncrementCount(ctx, newRoleID); err != nil {
			return fmt.Errorf("incrementing new role counter: %w", err)
		}
		_, err := tx.UserLogs().Append(ctx, domain.UserLog{
			UserID:      targetID,
			ChangedBy:   actor.ID,
			ActionType:  domain.ActionRoleChange,
			OldValue:    strconv.FormatInt(oldRoleID, 10),
			NewValue:    strconv.FormatInt(newRoleID, 10),
			Description: fmt.Sprintf("Role changed to %s", newRole.Name),
		})
		if err != nil {
			return fmt.Errorf("recording role change: %w", err)
		}
		return nil
	})
	if err != nil {
		return RoleChangeResult{}, err
	}

	publishEvent(ctx, s.Notifier, targetID, notify.EventRoleChanged, map[string]any{
		"user_id":     targetID,
		"old_role_id": oldRoleID,
		"new_role_id": newRoleID,
		"role_name":   newRole.Name,
		"changed_by":  actor.ID,
	})

	return RoleChangeResult{
		UserID:    targetID,
		OldRoleID: oldRoleID,
		NewRoleID: newRoleID,
		RoleName:  newRole.Name,
		Changed:   true,
	}, nil
}
