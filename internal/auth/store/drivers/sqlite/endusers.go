package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/authplatform/passage/internal/auth/domain"
)

type endUsersRepo struct {
	db queryer
}

const endUserColumns = `id, project_id, email, full_name, password_hash, email_verified, locked, password_changed_at, created_at, updated_at`

func scanEndUser(row interface{ Scan(...any) error }) (domain.EndUser, error) {
	var (
		u         domain.EndUser
		changedAt sql.NullTime
	)
	err := row.Scan(&u.ID, &u.ProjectID, &u.Email, &u.FullName, &u.PasswordHash,
		&u.EmailVerified, &u.Locked, &changedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.EndUser{}, err
	}
	u.PasswordChangedAt = mapNullTimePtr(changedAt)
	return u, nil
}

func (r *endUsersRepo) GetEndUserByID(ctx context.Context, projectID, id string) (domain.EndUser, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+endUserColumns+` FROM end_users WHERE id = ? AND project_id = ?`,
		id, projectID)
	u, err := scanEndUser(row)
	if err != nil {
		return domain.EndUser{}, mapNotFound(err)
	}
	return u, nil
}

func (r *endUsersRepo) GetEndUserByEmail(ctx context.Context, projectID, email string) (domain.EndUser, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+endUserColumns+` FROM end_users WHERE project_id = ? AND email = ?`,
		projectID, email)
	u, err := scanEndUser(row)
	if err != nil {
		return domain.EndUser{}, mapNotFound(err)
	}
	return u, nil
}

func (r *endUsersRepo) ListEndUsers(ctx context.Context, projectID string) ([]domain.EndUser, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+endUserColumns+` FROM end_users WHERE project_id = ? ORDER BY created_at DESC`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EndUser
	for rows.Next() {
		u, err := scanEndUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *endUsersRepo) CreateEndUser(ctx context.Context, u domain.EndUser) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO end_users (`+endUserColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.ProjectID, u.Email, u.FullName, u.PasswordHash,
		u.EmailVerified, u.Locked, mapOptionalTime(u.PasswordChangedAt),
		u.CreatedAt, u.UpdatedAt)
	return mapConstraint(err)
}

func (r *endUsersRepo) UpdateFullName(ctx context.Context, endUserID, fullName string) error {
	return r.exec(ctx,
		`UPDATE end_users SET full_name = ?, updated_at = ? WHERE id = ?`,
		fullName, time.Now().UTC(), endUserID)
}

func (r *endUsersRepo) UpdatePasswordHash(ctx context.Context, endUserID, newHash string) error {
	now := time.Now().UTC()
	return r.exec(ctx,
		`UPDATE end_users SET password_hash = ?, password_changed_at = ?, updated_at = ? WHERE id = ?`,
		newHash, now, now, endUserID)
}

func (r *endUsersRepo) MarkEmailVerified(ctx context.Context, endUserID string) error {
	return r.exec(ctx,
		`UPDATE end_users SET email_verified = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), endUserID)
}

func (r *endUsersRepo) SetLocked(ctx context.Context, endUserID string, locked bool) error {
	return r.exec(ctx,
		`UPDATE end_users SET locked = ?, updated_at = ? WHERE id = ?`,
		locked, time.Now().UTC(), endUserID)
}

func (r *endUsersRepo) GetRoles(ctx context.Context, endUserID string) ([]domain.ProjectRole, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.project_id, r.name, r.level, r.created_at, r.updated_at
		 FROM project_roles r
		 JOIN end_user_roles ur ON ur.role_id = r.id
		 WHERE ur.end_user_id = ?
		 ORDER BY r.level DESC`, endUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ProjectRole
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *endUsersRepo) AssignRole(ctx context.Context, endUserID, roleID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO end_user_roles (end_user_id, role_id, created_at) VALUES (?, ?, ?)`,
		endUserID, roleID, time.Now().UTC())
	return mapConstraint(err)
}

func (r *endUsersRepo) RemoveRole(ctx context.Context, endUserID, roleID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM end_user_roles WHERE end_user_id = ? AND role_id = ?`,
		endUserID, roleID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func (r *endUsersRepo) CountRoles(ctx context.Context, endUserID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM end_user_roles WHERE end_user_id = ?`, endUserID).Scan(&count)
	return count, err
}

func (r *endUsersRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
