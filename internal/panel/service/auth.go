package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/notify"
	"github.com/solidhost/panel/internal/panel/store"
	"github.com/solidhost/panel/pkg/cryptox"
	"github.com/solidhost/panel/pkg/jwtx"
)

// ErrTwoFARequired signals that the credentials were valid but the account
// has two-factor enabled and no code was supplied.
var ErrTwoFARequired = errors.New("two-factor code required")

type AuthService struct {
	Store    store.Store
	Codec    *jwtx.Codec
	Notifier notify.Notifier
}

// LoginResult is what a successful authentication yields: a signed session
// token and the resolved user.
type LoginResult struct {
	Token string
	User  domain.User
}

// Login authenticates by email and password, enforces the optional TOTP
// factor and the per-user IP allow-list, then issues a session token.
//
// Credential failures are uniform (ErrInvalidCredentials) regardless of
// whether the email or the password was wrong. The IP gate runs only after
// the credentials check out, and its error names the blocked address.
func (s *AuthService) Login(ctx context.Context, email, password, otpCode, sourceIP string) (LoginResult, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("looking up user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	if user.TwoFAEnabled {
		if otpCode == "" {
			return LoginResult{}, ErrTwoFARequired
		}
		if user.TwoFASecret == nil || !totp.Validate(otpCode, *user.TwoFASecret) {
			return LoginResult{}, ErrInvalidCredentials
		}
	}

	if err := s.ipAllowed(ctx, user.ID, sourceIP); err != nil {
		return LoginResult{}, err
	}

	token, err := s.Codec.Issue(user.ID, time.Now().UTC())
	if err != nil {
		return LoginResult{}, fmt.Errorf("issuing session token: %w", err)
	}

	// Last-login stamp and the audit row land together or not at all.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdateLastLogin(ctx, user.ID); err != nil {
			return fmt.Errorf("updating last login: %w", err)
		}
		_, err := tx.UserLogs().Append(ctx, domain.UserLog{
			UserID:      user.ID,
			ChangedBy:   user.ID,
			ActionType:  domain.ActionLogin,
			NewValue:    sourceIP,
			Description: fmt.Sprintf("Logged in from %s", sourceIP),
		})
		if err != nil {
			return fmt.Errorf("recording login: %w", err)
		}
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}

	publishEvent(ctx, s.Notifier, user.ID, notify.EventLogin, map[string]any{
		"user_id": user.ID,
		"ip":      sourceIP,
	})

	return LoginResult{Token: token, User: user}, nil
}

// CurrentUser resolves a session token to its user and applies the IP
// allow-list gate. The gate runs strictly after token validation: a request
// from a blocked address with a valid token is Forbidden, not Unauthorized.
func (s *AuthService) CurrentUser(ctx context.Context, token, sourceIP string) (domain.User, error) {
	subjectID, err := s.Codec.Validate(token, time.Now().UTC())
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := s.Store.Users().GetUserByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return domain.User{}, fmt.Errorf("looking up user: %w", err)
	}

	if err := s.ipAllowed(ctx, user.ID, sourceIP); err != nil {
		return domain.User{}, err
	}

	return user, nil
}

// GetUser loads a user by id, used by authz middleware once the token has
// already been validated upstream.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return domain.User{}, err
	}
	return user, nil
}

// IPAllowed applies the allow-list policy for middleware use.
func (s *AuthService) IPAllowed(ctx context.Context, userID int64, sourceIP string) error {
	return s.ipAllowed(ctx, userID, sourceIP)
}

// ipAllowed enforces the opt-in allow-list: a user with zero active entries
// is unrestricted; otherwise the source address must match an active entry
// exactly.
func (s *AuthService) ipAllowed(ctx context.Context, userID int64, sourceIP string) error {
	active, err := s.Store.AllowedIPs().CountActive(ctx, userID)
	if err != nil {
		return fmt.Errorf("checking allow-list: %w", err)
	}
	if active == 0 {
		return nil
	}

	allowed, err := s.Store.AllowedIPs().IsAllowed(ctx, userID, sourceIP)
	if err != nil {
		return fmt.Errorf("checking allow-list: %w", err)
	}
	if !allowed {
		return fmt.Errorf("%w: %s", ErrIPNotAllowed, sourceIP)
	}
	return nil
}
