package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/store"
)

// RoleService manages the role catalog. The five seeded roles are the
// backbone of the authorization model; custom roles may be added beyond
// them but the protected set is immutable.
type RoleService struct {
	Store store.Store
}

// Get returns a role by id.
func (s *RoleService) Get(ctx context.Context, roleID int64) (domain.Role, error) {
	role, err := s.Store.Roles().GetRoleByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Role{}, fmt.Errorf("%w: role %d", ErrNotFound, roleID)
		}
		return domain.Role{}, err
	}
	return role, nil
}

// List returns every role ordered by id, counters included.
func (s *RoleService) List(ctx context.Context) ([]domain.Role, error) {
	return s.Store.Roles().ListAll(ctx)
}

// Create adds a custom role with a zero member counter.
func (s *RoleService) Create(ctx context.Context, name, description string) (domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Role{}, fmt.Errorf("%w: role name is required", ErrValidation)
	}

	id, err := s.Store.Roles().CreateRole(ctx, domain.Role{
		Name:        name,
		Description: description,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Role{}, fmt.Errorf("%w: role name %q already exists", ErrConflict, name)
		}
		return domain.Role{}, fmt.Errorf("creating role: %w", err)
	}

	return s.Store.Roles().GetRoleByID(ctx, id)
}

// Delete removes a custom role. Protected system roles and roles that still
// have members are refused.
func (s *RoleService) Delete(ctx context.Context, roleID int64) error {
	role, err := s.Store.Roles().GetRoleByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: role %d", ErrNotFound, roleID)
		}
		return err
	}

	if role.Protected() {
		return fmt.Errorf("%w: role %q is a protected system role", ErrForbidden, role.Name)
	}
	if role.CountUsers > 0 {
		return fmt.Errorf("%w: role %q still has %d member(s)", ErrConflict, role.Name, role.CountUsers)
	}

	return s.Store.Roles().DeleteRole(ctx, roleID)
}
