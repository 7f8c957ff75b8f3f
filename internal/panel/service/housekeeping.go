package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/solidhost/panel/internal/panel/store"
)

// Housekeeper prunes audit rows past the retention window on a fixed
// interval. Retention is the only path that ever deletes audit rows.
type Housekeeper struct {
	Store     store.Store
	Retention time.Duration
	Interval  time.Duration
	Logger    *slog.Logger

	stop chan struct{}
	done chan struct{}
}

// Start launches the pruning loop. One pass runs immediately so a restart
// never postpones overdue cleanup by a full interval.
func (h *Housekeeper) Start() {
	h.stop = make(chan struct{})
	h.done = make(chan struct{})

	go func() {
		defer close(h.done)

		ticker := time.NewTicker(h.Interval)
		defer ticker.Stop()

		h.prune()
		for {
			select {
			case <-ticker.C:
				h.prune()
			case <-h.stop:
				return
			}
		}
	}()
}

// Stop signals the loop to exit and waits for the in-flight pass to finish.
func (h *Housekeeper) Stop() {
	if h.stop == nil {
		return
	}
	close(h.stop)
	<-h.done
}

func (h *Housekeeper) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-h.Retention)
	removed, err := h.Store.UserLogs().DeleteOlderThan(ctx, cutoff)
	if err != nil {
		h.Logger.Error("audit log pruning failed", "err", err)
		return
	}
	if removed > 0 {
		h.Logger.Info("audit log pruned", "removed", removed, "cutoff", cutoff)
	}
}
