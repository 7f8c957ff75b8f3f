// Package notify pushes identity events (login, role changes) to connected
// clients. Delivery is best-effort: the core emits events but never depends
// on them being delivered, so publish failures are logged and swallowed.
package notify

import (
	"context"
)

// Event types pushed to clients.
const (
	EventLogin       = "login"
	EventRoleChanged = "role_changed"
)

// Notifier publishes an event about a user to whatever transport is
// configured. Implementations must be safe for concurrent use.
type Notifier interface {
	Publish(ctx context.Context, userID int64, event string, payload map[string]any) error
	Close() error
}

// Nop is the notifier used when no broker is configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, userID int64, event string, payload map[string]any) error {
	return nil
}

func (Nop) Close() error { return nil }
