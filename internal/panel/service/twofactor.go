package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pquerna/otp/totp"
	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/store"
)

// TwoFactorService handles TOTP enrollment. Enrollment is two-step: Enroll
// stores a pending secret, Activate proves possession of it with a valid
// code before the factor starts gating logins.
type TwoFactorService struct {
	Store  store.Store
	Issuer string
}

// Enrollment is handed to the client exactly once, at enrollment time.
type Enrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// Enroll generates a fresh TOTP secret for the user and stores it pending
// activation. Re-enrolling replaces any previous pending secret; an account
// with the factor already active must disable it first.
func (s *TwoFactorService) Enroll(ctx context.Context, user domain.User) (Enrollment, error) {
	if user.TwoFAEnabled {
		return Enrollment{}, fmt.Errorf("%w: two-factor is already enabled", ErrConflict)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("generating totp secret: %w", err)
	}

	if err := s.Store.Users().SetTwoFASecret(ctx, user.ID, key.Secret()); err != nil {
		return Enrollment{}, fmt.Errorf("storing totp secret: %w", err)
	}

	return Enrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// Activate turns the factor on after the user proves they hold the pending
// secret.
func (s *TwoFactorService) Activate(ctx context.Context, userID int64, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return err
	}
	if user.TwoFAEnabled {
		return fmt.Errorf("%w: two-factor is already enabled", ErrConflict)
	}
	if user.TwoFASecret == nil {
		return fmt.Errorf("%w: no pending enrollment", ErrValidation)
	}
	if !totp.Validate(code, *user.TwoFASecret) {
		return fmt.Errorf("%w: invalid two-factor code", ErrValidation)
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().EnableTwoFA(ctx, userID); err != nil {
			return fmt.Errorf("enabling two-factor: %w", err)
		}
		_, err := tx.UserLogs().Append(ctx, domain.UserLog{
			UserID:      userID,
			ChangedBy:   userID,
			ActionType:  domain.ActionTwoFAEnabled,
			Description: "Two-factor authentication enabled",
		})
		if err != nil {
			return fmt.Errorf("recording two-factor change: %w", err)
		}
		return nil
	})
}

// Disable turns the factor off. A valid current code is required so a
// hijacked session alone cannot strip the protection.
func (s *TwoFactorService) Disable(ctx context.Context, userID int64, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return err
	}
	if !user.TwoFAEnabled || user.TwoFASecret == nil {
		return fmt.Errorf("%w: two-factor is not enabled", ErrValidation)
	}
	if !totp.Validate(code, *user.TwoFASecret) {
		return fmt.Errorf("%w: invalid two-factor code", ErrValidation)
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().DisableTwoFA(ctx, userID); err != nil {
			return fmt.Errorf("disabling two-factor: %w", err)
		}
		_, err := tx.UserLogs().Append(ctx, domain.UserLog{
			UserID:      userID,
			ChangedBy:   userID,
			ActionType:  domain.ActionTwoFADisabled,
			Description: "Two-factor authentication disabled",
		})
		if err != nil {
			return fmt.Errorf("recording two-factor change: %w", err)
		}
		return nil
	})
}
