package sqlite

import (
	"context"
	"database/sql"

	"github.com/solidhost/panel/internal/panel/domain"
)

type allowedIPsRepo struct {
	db dbtx
}

const allowedIPColumns = `id, user_id, ip_address, description, is_active, created_at, updated_at`

func scanAllowedIP(scan func(dest ...any) error) (domain.AllowedIP, error) {
	var (
		e    domain.AllowedIP
		desc sql.NullString
	)
	if err := scan(&e.ID, &e.UserID, &e.IPAddress, &desc, &e.Active,
		&e.CreatedAt, &e.UpdatedAt); err != nil {
		return domain.AllowedIP{}, err
	}
	e.Description = mapNullString(desc)
	return e, nil
}

func (r *allowedIPsRepo) ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]domain.AllowedIP, error) {
	query := `SELECT ` + allowedIPColumns + ` FROM users_allowed_ips WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AllowedIP
	for rows.Next() {
		e, err := scanAllowedIP(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *allowedIPsRepo) GetByUserAndIP(ctx context.Context, userID int64, ip string) (domain.AllowedIP, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+allowedIPColumns+` FROM users_allowed_ips
		 WHERE user_id = ? AND ip_address = ?`, userID, ip)
	e, err := scanAllowedIP(row.Scan)
	if err != nil {
		return domain.AllowedIP{}, mapNotFound(err)
	}
	return e, nil
}

func (r *allowedIPsRepo) CreateAllowedIP(ctx context.Context, e domain.AllowedIP) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users_allowed_ips (user_id, ip_address, description, is_active)
		VALUES (?, ?, ?, 1)`,
		e.UserID, e.IPAddress, e.Description)
	if err != nil {
		return 0, mapConflict(err)
	}
	return res.LastInsertId()
}

func (r *allowedIPsRepo) Reactivate(ctx context.Context, id int64, description string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users_allowed_ips
		SET is_active = 1, description = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, description, id)
	return err
}

func (r *allowedIPsRepo) Deactivate(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users_allowed_ips
		SET is_active = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	return err
}

func (r *allowedIPsRepo) IsAllowed(ctx context.Context, userID int64, ip string) (bool, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users_allowed_ips
		WHERE user_id = ? AND ip_address = ? AND is_active = 1`,
		userID, ip).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *allowedIPsRepo) CountActive(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users_allowed_ips
		WHERE user_id = ? AND is_active = 1`, userID).Scan(&n)
	return n, err
}
