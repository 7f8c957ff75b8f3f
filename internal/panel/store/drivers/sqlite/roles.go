package sqlite

import (
	"context"
	"database/sql"

	"github.com/solidhost/panel/internal/panel/domain"
)

type rolesRepo struct {
	db dbtx
}

const roleColumns = `id, name, description, count_users, created_at, updated_at`

func scanRole(scan func(dest ...any) error) (domain.Role, error) {
	var (
		r    domain.Role
		desc sql.NullString
	)
	if err := scan(&r.ID, &r.Name, &desc, &r.CountUsers, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return domain.Role{}, err
	}
	r.Description = mapNullString(desc)
	return r, nil
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id int64) (domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = ?`, id)
	role, err := scanRole(row.Scan)
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	return role, nil
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE name = ?`, name)
	role, err := scanRole(row.Scan)
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	return role, nil
}

func (r *rolesRepo) ListAll(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roleColumns+` FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		role, err := scanRole(rows.Scan)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (name, description) VALUES (?, ?)`,
		role.Name, role.Description)
	if err != nil {
		return 0, mapConflict(err)
	}
	return res.LastInsertId()
}

// IncrementCount bumps count_users in a single atomic UPDATE. Doing the
// arithmetic in SQL keeps concurrent role changes from losing updates.
func (r *rolesRepo) IncrementCount(ctx context.Context, roleID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE roles
		SET count_users = count_users + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, roleID)
	return err
}

// DecrementCount is clamped: a role already at zero stays at zero rather
// than tripping the CHECK constraint.
func (r *rolesRepo) DecrementCount(ctx context.Context, roleID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE roles
		SET count_users = count_users - 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND count_users > 0`, roleID)
	return err
}

func (r *rolesRepo) DeleteRole(ctx context.Context, roleID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, roleID)
	return err
}
