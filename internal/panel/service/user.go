package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/store"
	"github.com/solidhost/panel/pkg/cryptox"
)

// UserService covers the user lifecycle outside of authentication:
// registration, profile maintenance, password changes and deletion.
type UserService struct {
	Store store.Store
}

// RegisterParams carries the fields accepted at sign-up. Role is never
// accepted from the caller; every new account starts as a regular user.
type RegisterParams struct {
	Phone     string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a new account with the default role, increments that
// role's member counter and writes the registration audit row, all in one
// transaction.
func (s *UserService) Register(ctx context.Context, p RegisterParams) (domain.User, error) {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Phone = strings.TrimSpace(p.Phone)

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hashing password: %w", err)
	}

	user := domain.User{
		Phone:        p.Phone,
		Email:        p.Email,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		PasswordHash: hash,
		RoleID:       domain.DefaultRoleID,
	}

	return s.insertUser(ctx, user, 0, "Account registered")
}

// AdminCreateParams carries the fields an administrator supplies when
// creating an account on someone's behalf. No password: one is generated.
type AdminCreateParams struct {
	Phone     string
	Email     string
	FirstName string
	LastName  string
}

// AdminCreate creates an account with a generated password and returns the
// plaintext exactly once, for the administrator to hand over out of band.
// Only the hash is stored.
func (s *UserService) AdminCreate(ctx context.Context, actor domain.User, p AdminCreateParams) (domain.User, string, error) {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Phone = strings.TrimSpace(p.Phone)

	password, err := cryptox.GeneratePassword()
	if err != nil {
		return domain.User{}, "", fmt.Errorf("generating password: %w", err)
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hashing password: %w", err)
	}

	user := domain.User{
		Phone:        p.Phone,
		Email:        p.Email,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		PasswordHash: hash,
		RoleID:       domain.DefaultRoleID,
	}

	created, err := s.insertUser(ctx, user, actor.ID, "Account created by administrator")
	if err != nil {
		return domain.User{}, "", err
	}
	return created, password, nil
}

// insertUser creates the row, increments the default-role counter and writes
// the registration audit entry in one transaction. changedBy == 0 means the
// account registered itself.
func (s *UserService) insertUser(ctx context.Context, user domain.User, changedBy int64, description string) (domain.User, error) {
	var userID int64
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		id, err := tx.Users().CreateUser(ctx, user)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				return fmt.Errorf("%w: email or phone already registered", ErrConflict)
			}
			return fmt.Errorf("creating user: %w", err)
		}
		userID = id

		if err := tx.Roles().IncrementCount(ctx, user.RoleID); err != nil {
			return fmt.Errorf("incrementing role counter: %w", err)
		}

		actor := changedBy
		if actor == 0 {
			actor = id
		}
		_, err = tx.UserLogs().Append(ctx, domain.UserLog{
			UserID:      id,
			ChangedBy:   actor,
			ActionType:  domain.ActionRegister,
			NewValue:    user.Email,
			Description: description,
		})
		if err != nil {
			return fmt.Errorf("recording registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	return s.Store.Users().GetUserByID(ctx, userID)
}

// ProfileUpdate holds the mutable profile fields. Nil pointers mean "leave
// unchanged"; a pointer to the empty string clears the field.
type ProfileUpdate struct {
	FirstName      *string
	LastName       *string
	Nick           *string
	SecondaryEmail *string
}

// UpdateProfile applies a partial profile update on behalf of actor and
// records what changed.
func (s *UserService) UpdateProfile(ctx context.Context, actor domain.User, userID int64, upd ProfileUpdate) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return domain.User{}, err
	}

	// Old and new values of every touched field go into the audit row as
	// JSON blobs.
	oldVals := map[string]any{}
	newVals := map[string]any{}

	if upd.FirstName != nil && *upd.FirstName != user.FirstName {
		oldVals["first_name"], newVals["first_name"] = user.FirstName, *upd.FirstName
		user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil && *upd.LastName != user.LastName {
		oldVals["last_name"], newVals["last_name"] = user.LastName, *upd.LastName
		user.LastName = *upd.LastName
	}
	if upd.Nick != nil && strings.TrimSpace(*upd.Nick) != derefOr(user.Nick, "") {
		oldVals["nick"], newVals["nick"] = derefOr(user.Nick, ""), strings.TrimSpace(*upd.Nick)
		user.Nick = normalizeOptional(*upd.Nick)
	}
	if upd.SecondaryEmail != nil {
		secondary := normalizeOptional(strings.ToLower(strings.TrimSpace(*upd.SecondaryEmail)))
		if secondary != nil {
			if *secondary == user.Email {
				return domain.User{}, fmt.Errorf("%w: secondary email must differ from primary email", ErrValidation)
			}
			// Another user's primary email cannot become this user's
			// secondary. Secondary-vs-secondary collisions are caught by the
			// unique column.
			other, err := s.Store.Users().GetUserByEmail(ctx, *secondary)
			if err == nil && other.ID != userID {
				return domain.User{}, fmt.Errorf("%w: secondary email already in use", ErrConflict)
			}
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return domain.User{}, err
			}
		}
		oldVals["secondary_email"], newVals["secondary_email"] = derefOr(user.SecondaryEmail, ""), derefOr(secondary, "")
		user.SecondaryEmail = secondary
	}

	if len(newVals) == 0 {
		return user, nil
	}

	changed := make([]string, 0, len(newVals))
	for field := range newVals {
		changed = append(changed, field)
	}
	sort.Strings(changed)

	oldJSON, err := json.Marshal(oldVals)
	if err != nil {
		return domain.User{}, fmt.Errorf("encoding audit values: %w", err)
	}
	newJSON, err := json.Marshal(newVals)
	if err != nil {
		return domain.User{}, fmt.Errorf("encoding audit values: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdateProfile(ctx, user); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return fmt.Errorf("%w: nick or secondary email already taken", ErrConflict)
			}
			return fmt.Errorf("updating profile: %w", err)
		}
		_, err := tx.UserLogs().Append(ctx, domain.UserLog{
			UserID:      userID,
			ChangedBy:   actor.ID,
			ActionType:  domain.ActionProfileUpdate,
			OldValue:    string(oldJSON),
			NewValue:    string(newJSON),
			Description: fmt.Sprintf("Profile fields updated: %s", strings.Join(changed, ", ")),
		})
		if err != nil {
			return fmt.Errorf("recording profile update: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	return s.Store.Users().GetUserByID(ctx, userID)
}

// ChangePassword verifies the current password before storing the new hash.
// The audit row never contains either password.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return err
	}

	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		return fmt.Errorf("%w: current password is incorrect", ErrValidation)
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
			return fmt.Errorf("updating password: %w", err)
		}
		_, err := tx.UserLogs().Append(ctx, domain.UserLog{
			UserID:      userID,
			ChangedBy:   userID,
			ActionType:  domain.ActionPasswordChange,
			Description: "Password changed",
		})
		if err != nil {
			return fmt.Errorf("recording password change: %w", err)
		}
		return nil
	})
}

// Get returns a single user by id.
func (s *UserService) Get(ctx context.Context, userID int64) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return domain.User{}, err
	}
	return user, nil
}

// List returns users ordered by id, paginated.
func (s *UserService) List(ctx context.Context, limit, offset int64) ([]domain.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Store.Users().ListUsers(ctx, limit, offset)
}

// Delete removes an account and decrements its role counter in one
// transaction. Audit rows referencing the user are kept; the super admin
// cannot be deleted.
func (s *UserService) Delete(ctx context.Context, actor domain.User, userID int64) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return err
	}
	if user.IsSuperAdmin() {
		return fmt.Errorf("%w: the super admin account cannot be deleted", ErrForbidden)
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().DeleteUser(ctx, userID); err != nil {
			return fmt.Errorf("deleting user: %w", err)
		}
		if err := tx.Roles().DecrementCount(ctx, user.RoleID); err != nil {
			return fmt.Errorf("decrementing role counter: %w", err)
		}
		return nil
	})
}

// normalizeOptional maps the empty string to nil so optional unique columns
// store NULL instead of colliding on "".
func normalizeOptional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func derefOr(s *string, fallback string) string {
	if s != nil {
		return *s
	}
	return fallback
}
