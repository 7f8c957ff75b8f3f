package domain

import "time"

type User struct {
	ID            int64
	Phone         string
	Email         string
	Nick          *string // optional, globally unique when set
	FirstName     string
	LastName      string
	PasswordHash  string // bcrypt encoded
	RoleID        int64  // Foreign key to roles table
	TwoFAEnabled  bool
	TwoFASecret   *string // TOTP secret (nullable, base32 encoded)
	EmailVerified bool
	PhoneVerified bool

	// SecondaryEmail must differ from the primary email and may not be
	// claimed by another user.
	SecondaryEmail *string

	// SecuritySettings is a free-form JSON blob of per-user security
	// preferences (stored as TEXT).
	SecuritySettings map[string]any

	LastLogin *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsSuperAdmin reports whether the user holds the super-admin role.
func (u User) IsSuperAdmin() bool { return u.RoleID == RoleSuperAdmin }

// IsAdmin reports whether the user holds an administrative role.
// Role ids are ordered by privilege: the smaller the id, the higher the role.
func (u User) IsAdmin() bool { return u.RoleID <= RoleAdmin }

// IsModerator reports whether the user holds at least the moderator role.
func (u User) IsModerator() bool { return u.RoleID <= RoleModerator }
