package service

import (
	"context"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/store"
)

// AuditService exposes the append-only action log for reading. Writes happen
// inside the other services' transactions; this service only queries.
type AuditService struct {
	Store store.Store
}

// LogPage is one page of audit rows plus the total match count for the
// filter, so clients can paginate.
type LogPage struct {
	Entries []domain.UserLog `json:"entries"`
	Total   int64            `json:"total"`
	Limit   int64            `json:"limit"`
	Offset  int64            `json:"offset"`
}

// Query returns matching audit rows newest-first.
func (s *AuditService) Query(ctx context.Context, f domain.LogFilter, limit, offset int64) (LogPage, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.Store.UserLogs().Query(ctx, f, limit, offset)
	if err != nil {
		return LogPage{}, err
	}
	total, err := s.Store.UserLogs().Count(ctx, f)
	if err != nil {
		return LogPage{}, err
	}

	if entries == nil {
		entries = []domain.UserLog{}
	}
	return LogPage{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}
