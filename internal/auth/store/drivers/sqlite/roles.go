package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/authplatform/passage/internal/auth/domain"
)

type projectRolesRepo struct {
	db queryer
}

const roleColumns = `id, project_id, name, level, created_at, updated_at`

func scanRole(row interface{ Scan(...any) error }) (domain.ProjectRole, error) {
	var r domain.ProjectRole
	err := row.Scan(&r.ID, &r.ProjectID, &r.Name, &r.Level, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return domain.ProjectRole{}, err
	}
	return r, nil
}

func (r *projectRolesRepo) GetRoleByID(ctx context.Context, projectID, roleID string) (domain.ProjectRole, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM project_roles WHERE id = ? AND project_id = ?`,
		roleID, projectID)
	role, err := scanRole(row)
	if err != nil {
		return domain.ProjectRole{}, mapNotFound(err)
	}
	return role, nil
}

func (r *projectRolesRepo) GetRoleByName(ctx context.Context, projectID, name string) (domain.ProjectRole, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM project_roles WHERE project_id = ? AND name = ?`,
		projectID, name)
	role, err := scanRole(row)
	if err != nil {
		return domain.ProjectRole{}, mapNotFound(err)
	}
	return role, nil
}

func (r *projectRolesRepo) ListRoles(ctx context.Context, projectID string) ([]domain.ProjectRole, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roleColumns+` FROM project_roles WHERE project_id = ? ORDER BY level DESC`,
		projectID)
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

func (r *projectRolesRepo) CreateRole(ctx context.Context, role domain.ProjectRole) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO project_roles (`+roleColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		role.ID, role.ProjectID, role.Name, role.Level, role.CreatedAt, role.UpdatedAt)
	return mapConstraint(err)
}

func (r *projectRolesRepo) UpdateRole(ctx context.Context, roleID, name string, level int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE project_roles SET name = ?, level = ?, updated_at = ? WHERE id = ?`,
		name, level, time.Now().UTC(), roleID)
	if err != nil {
		return mapConstraint(err)
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

func (r *projectRolesRepo) DeleteRole(ctx context.Context, roleID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM project_roles WHERE id = ?`, roleID)
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

func (r *projectRolesRepo) CountAssignments(ctx context.Context, roleID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM end_user_roles WHERE role_id = ?`, roleID).Scan(&count)
	return count, err
}
