package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/solidhost/panel/internal/panel/domain"
)

type userLogsRepo struct {
	db dbtx
}

// sqliteTimeLayout matches how CURRENT_TIMESTAMP renders, so bound time
// arguments compare correctly against stored values.
const sqliteTimeLayout = "2006-01-02 15:04:05"

func (r *userLogsRepo) Append(ctx context.Context, l domain.UserLog) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users_logs (user_id, changed_by, action_type, old_value, new_value, description)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.UserID, l.ChangedBy, l.ActionType, l.OldValue, l.NewValue, l.Description)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// logFilterClause builds the WHERE clause for a LogFilter. Zero values mean
// "no constraint".
func logFilterClause(f domain.LogFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != 0 {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.ChangedBy != 0 {
		conds = append(conds, "changed_by = ?")
		args = append(args, f.ChangedBy)
	}
	if f.ActionType != "" {
		conds = append(conds, "action_type = ?")
		args = append(args, f.ActionType)
	}
	if !f.From.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.From.UTC().Format(sqliteTimeLayout))
	}
	if !f.To.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.To.UTC().Format(sqliteTimeLayout))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *userLogsRepo) Query(ctx context.Context, f domain.LogFilter, limit, offset int64) ([]domain.UserLog, error) {
	where, args := logFilterClause(f)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, changed_by, action_type, old_value, new_value, description, created_at
		FROM users_logs`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.UserLog
	for rows.Next() {
		var l domain.UserLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.ChangedBy, &l.ActionType,
			&l.OldValue, &l.NewValue, &l.Description, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *userLogsRepo) Count(ctx context.Context, f domain.LogFilter) (int64, error) {
	where, args := logFilterClause(f)

	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users_logs`+where, args...).Scan(&n)
	return n, err
}

func (r *userLogsRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM users_logs WHERE created_at < ?`, cutoff.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
