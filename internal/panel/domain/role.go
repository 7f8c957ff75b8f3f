package domain

import "time"

// System role ids, seeded at migration time. Ordered by privilege: lower id
// means more privilege.
const (
	RoleSuperAdmin int64 = 1
	RoleAdmin      int64 = 2
	RoleModerator  int64 = 3
	RoleUser       int64 = 4
	RoleGuest      int64 = 5
)

// DefaultRoleID is assigned to freshly registered users.
const DefaultRoleID = RoleUser

type Role struct {
	ID          int64
	Name        string
	Description string

	// CountUsers is the denormalized number of users currently assigned
	// this role. Maintained transactionally alongside users.role_id.
	CountUsers int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Protected reports whether the role is one of the four protected system
// roles that can never be deleted.
func (r Role) Protected() bool {
	return r.ID >= RoleSuperAdmin && r.ID <= RoleUser
}
