package sqlite

import (
	"context"
	"database/sql"

	"github.com/solidhost/panel/internal/panel/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, phone, email, nick, first_name, last_name, password_hash,
	role_id, two_fa_enabled, two_fa_secret, email_verified, phone_verified,
	secondary_email, security_settings, last_login, created_at, updated_at`

func (r *usersRepo) scanUser(row *sql.Row) (domain.User, error) {
	var (
		u         domain.User
		nick      sql.NullString
		secret    sql.NullString
		secondary sql.NullString
		settings  sql.NullString
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Phone, &u.Email, &nick, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.RoleID, &u.TwoFAEnabled, &secret,
		&u.EmailVerified, &u.PhoneVerified, &secondary, &settings,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Nick = mapNullStringPtr(nick)
	u.TwoFASecret = mapNullStringPtr(secret)
	u.SecondaryEmail = mapNullStringPtr(secondary)
	u.LastLogin = mapNullTimePtr(lastLogin)
	u.SecuritySettings, err = unmarshalSettings(settings)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return r.scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	settings, err := marshalSettings(u.SecuritySettings)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (phone, email, nick, first_name, last_name,
			password_hash, role_id, secondary_email, security_settings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Phone, u.Email, mapOptionalString(u.Nick), u.FirstName, u.LastName,
		u.PasswordHash, u.RoleID, mapOptionalString(u.SecondaryEmail), settings,
	)
	if err != nil {
		return 0, mapConflict(err)
	}
	return res.LastInsertId()
}

func (r *usersRepo) ListUsers(ctx context.Context, limit, offset int64) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var (
			u         domain.User
			nick      sql.NullString
			secret    sql.NullString
			secondary sql.NullString
			settings  sql.NullString
			lastLogin sql.NullTime
		)
		if err := rows.Scan(
			&u.ID, &u.Phone, &u.Email, &nick, &u.FirstName, &u.LastName,
			&u.PasswordHash, &u.RoleID, &u.TwoFAEnabled, &secret,
			&u.EmailVerified, &u.PhoneVerified, &secondary, &settings,
			&lastLogin, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		u.Nick = mapNullStringPtr(nick)
		u.TwoFASecret = mapNullStringPtr(secret)
		u.SecondaryEmail = mapNullStringPtr(secondary)
		u.LastLogin = mapNullTimePtr(lastLogin)
		if u.SecuritySettings, err = unmarshalSettings(settings); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) UpdateProfile(ctx context.Context, u domain.User) error {
	settings, err := marshalSettings(u.SecuritySettings)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE users
		SET first_name = ?, last_name = ?, nick = ?, secondary_email = ?,
			security_settings = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		u.FirstName, u.LastName, mapOptionalString(u.Nick),
		mapOptionalString(u.SecondaryEmail), settings, u.ID,
	)
	return mapConflict(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID int64, newHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		newHash, userID)
	return err
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET role_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		roleID, userID)
	return err
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) SetTwoFASecret(ctx context.Context, userID int64, secret string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET two_fa_secret = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		secret, userID)
	return err
}

func (r *usersRepo) EnableTwoFA(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET two_fa_enabled = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		userID)
	return err
}

func (r *usersRepo) DisableTwoFA(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET two_fa_enabled = 0, two_fa_secret = NULL,
			updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		userID)
	return err
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}
