package service

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/store"
)

// AllowedIPService manages per-user source-address allow-lists. Entries are
// exact-match IP literals; removal is a soft deactivation so the history of
// an address stays on record.
type AllowedIPService struct {
	Store store.Store
}

// List returns the user's allow-list entries.
func (s *AllowedIPService) List(ctx context.Context, userID int64, activeOnly bool) ([]domain.AllowedIP, error) {
	return s.Store.AllowedIPs().ListByUser(ctx, userID, activeOnly)
}

// Add registers an address on the user's allow-list. A previously
// deactivated entry for the same address is reactivated instead of
// duplicated; an already-active entry is a conflict.
func (s *AllowedIPService) Add(ctx context.Context, actor domain.User, userID int64, ip, description string) (domain.AllowedIP, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return domain.AllowedIP{}, fmt.Errorf("%w: %q is not a valid IP address", ErrValidation, ip)
	}
	canonical := addr.String()

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.AllowedIPs().GetByUserAndIP(ctx, userID, canonical)
		switch {
		case err == nil && existing.Active:
			return fmt.Errorf("%w: %s is already on the allow-list", ErrConflict, canonical)
		case err == nil:
			if err := tx.AllowedIPs().Reactivate(ctx, existing.ID, description); err != nil {
				return fmt.Errorf("reactivating entry: %w", err)
			}
		case errors.Is(err, store.ErrNotFound):
			_, err := tx.AllowedIPs().CreateAllowedIP(ctx, domain.AllowedIP{
				UserID:      userID,
				IPAddress:   canonical,
				Description: description,
				Active:      true,
			})
			if err != nil {
				return fmt.Errorf("creating entry: %w", err)
			}
		default:
			return fmt.Errorf("looking up entry: %w", err)
		}

		_, err = tx.UserLogs().Append(ctx, domain.UserLog{
			UserID:      userID,
			ChangedBy:   actor.ID,
			ActionType:  domain.ActionIPAdded,
			NewValue:    canonical,
			Description: fmt.Sprintf("IP %s added to allow-list", canonical),
		})
		if err != nil {
			return fmt.Errorf("recording allow-list change: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.AllowedIP{}, err
	}

	return s.Store.AllowedIPs().GetByUserAndIP(ctx, userID, canonical)
}

// Remove deactivates an allow-list entry. Removing an address that is not
// actively listed is ErrNotFound.
func (s *AllowedIPService) Remove(ctx context.Context, actor domain.User, userID int64, ip string) error {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return fmt.Errorf("%w: %q is not a valid IP address", ErrValidation, ip)
	}
	canonical := addr.String()

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.AllowedIPs().GetByUserAndIP(ctx, userID, canonical)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s is not on the allow-list", ErrNotFound, canonical)
			}
			return fmt.Errorf("looking up entry: %w", err)
		}
		if !existing.Active {
			return fmt.Errorf("%w: %s is not on the allow-list", ErrNotFound, canonical)
		}

		if err := tx.AllowedIPs().Deactivate(ctx, existing.ID); err != nil {
			return fmt.Errorf("deactivating entry: %w", err)
		}

		_, err = tx.UserLogs().Append(ctx, domain.UserLog{
			UserID:      userID,
			ChangedBy:   actor.ID,
			ActionType:  domain.ActionIPRemoved,
			OldValue:    canonical,
			Description: fmt.Sprintf("IP %s removed from allow-list", canonical),
		})
		if err != nil {
			return fmt.Errorf("recording allow-list change: %w", err)
		}
		return nil
	})
}
