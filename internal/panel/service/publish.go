package service

import (
	"context"

	"github.com/solidhost/panel/internal/panel/notify"
	"github.com/solidhost/panel/pkg/slogx"
)

// publishEvent sends an event through the notifier, logging and swallowing
// failures: delivery is best-effort and never aborts the operation that
// produced the event.
func publishEvent(ctx context.Context, n notify.Notifier, userID int64, event string, payload map[string]any) {
	if n == nil {
		return
	}
	if err := n.Publish(ctx, userID, event, payload); err != nil {
		slogx.FromContext(ctx).Warn("event publish failed", "event", event, "user_id", userID, "err", err)
	}
}
