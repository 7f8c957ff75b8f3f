package store

import (
	"context"
	"errors"
	"time"

	"github.com/solidhost/panel/internal/panel/domain"
)

var (
	ErrNotFound = errors.New("store: not found")

	// ErrConflict reports a violated uniqueness constraint (duplicate
	// email/phone/nick, duplicate role name).
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable.
type Store interface {
	Users() Users
	Roles() Roles
	AllowedIPs() AllowedIPs
	UserLogs() UserLogs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to handle multi-step atomic operations such as a
	// role change (role reference + both counters + audit row).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByEmail is used during login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user and returns the assigned id.
	// Returns ErrConflict when email, phone or nick is already taken.
	CreateUser(ctx context.Context, u domain.User) (int64, error)

	// ListUsers returns users ordered by id, paginated.
	ListUsers(ctx context.Context, limit, offset int64) ([]domain.User, error)

	// UpdateProfile mutates names, nick and secondary email and bumps
	// updated_at. Returns ErrConflict on a nick/secondary-email collision.
	UpdateProfile(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (bcrypt) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID int64, newHash string) error

	// UpdateRole repoints the user's role reference. Counter maintenance is
	// the caller's job, inside the same transaction.
	UpdateRole(ctx context.Context, userID, roleID int64) error

	// UpdateLastLogin stamps last_login.
	UpdateLastLogin(ctx context.Context, userID int64) error

	// SetTwoFASecret stores a (pending) TOTP secret for the user.
	SetTwoFASecret(ctx context.Context, userID int64, secret string) error

	// EnableTwoFA / DisableTwoFA flip the two_fa_enabled flag;
	// DisableTwoFA also clears the stored secret.
	EnableTwoFA(ctx context.Context, userID int64) error
	DisableTwoFA(ctx context.Context, userID int64) error

	// DeleteUser removes the row. Allow-list entries cascade per schema;
	// audit rows are deliberately retained.
	DeleteUser(ctx context.Context, userID int64) error
}

type Roles interface {
	// GetRoleByID fetches a role by its id.
	GetRoleByID(ctx context.Context, id int64) (domain.Role, error)

	// GetRoleByName fetches a role by its unique name.
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	// ListAll returns all roles ordered by id.
	ListAll(ctx context.Context) ([]domain.Role, error)

	// CreateRole inserts a new role and returns the assigned id.
	// Returns ErrConflict when the name is taken.
	CreateRole(ctx context.Context, r domain.Role) (int64, error)

	// IncrementCount / DecrementCount adjust count_users as a single atomic
	// UPDATE expression at the storage layer, never read-then-write from the
	// application. Decrement clamps at zero.
	IncrementCount(ctx context.Context, roleID int64) error
	DecrementCount(ctx context.Context, roleID int64) error

	// DeleteRole removes a role. The caller enforces the protected-role and
	// member-count rules first.
	DeleteRole(ctx context.Context, roleID int64) error
}

type AllowedIPs interface {
	// ListByUser returns the user's allow-list entries; activeOnly filters
	// out deactivated ones.
	ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]domain.AllowedIP, error)

	// GetByUserAndIP fetches a single entry regardless of active state.
	GetByUserAndIP(ctx context.Context, userID int64, ip string) (domain.AllowedIP, error)

	// CreateAllowedIP inserts a new entry (active).
	CreateAllowedIP(ctx context.Context, e domain.AllowedIP) (int64, error)

	// Reactivate flips an existing entry back to active and refreshes its
	// description.
	Reactivate(ctx context.Context, id int64, description string) error

	// Deactivate soft-deletes an entry.
	Deactivate(ctx context.Context, id int64) error

	// IsAllowed reports whether (userID, ip) matches an active entry.
	IsAllowed(ctx context.Context, userID int64, ip string) (bool, error)

	// CountActive returns the number of active entries for the user.
	CountActive(ctx context.Context, userID int64) (int64, error)
}

type UserLogs interface {
	// Append inserts an audit row and returns its id. Audit rows are
	// immutable once written.
	Append(ctx context.Context, l domain.UserLog) (int64, error)

	// Query returns matching rows newest-first, paginated.
	Query(ctx context.Context, f domain.LogFilter, limit, offset int64) ([]domain.UserLog, error)

	// Count returns the number of rows matching the filter.
	Count(ctx context.Context, f domain.LogFilter) (int64, error)

	// DeleteOlderThan removes rows created before the cutoff (retention
	// housekeeping) and returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
