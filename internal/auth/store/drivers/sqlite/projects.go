package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/authplatform/passage/internal/auth/domain"
)

type projectsRepo struct {
	db queryer
}

const projectColumns = `id, name, api_key, secret_hash, owner_id, allowed_origins, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (domain.Project, error) {
	var (
		p       domain.Project
		origins string
	)
	err := row.Scan(&p.ID, &p.Name, &p.APIKey, &p.SecretHash, &p.OwnerID,
		&origins, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Project{}, err
	}
	p.AllowedOrigins = splitOrigins(origins)
	return p, nil
}

func (r *projectsRepo) GetProjectByID(ctx context.Context, id string) (domain.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err != nil {
		return domain.Project{}, mapNotFound(err)
	}
	return p, nil
}

func (r *projectsRepo) GetProjectByAPIKey(ctx context.Context, apiKey string) (domain.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE api_key = ?`, apiKey)
	p, err := scanProject(row)
	if err != nil {
		return domain.Project{}, mapNotFound(err)
	}
	return p, nil
}

func (r *projectsRepo) ListProjectsByOwner(ctx context.Context, ownerID string) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *projectsRepo) CreateProject(ctx context.Context, p domain.Project) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.APIKey, p.SecretHash, p.OwnerID,
		joinOrigins(p.AllowedOrigins), p.CreatedAt, p.UpdatedAt)
	return mapConstraint(err)
}

func (r *projectsRepo) UpdateProject(ctx context.Context, projectID, name string, allowedOrigins []string) error {
	return r.exec(ctx,
		`UPDATE projects SET name = ?, allowed_origins = ?, updated_at = ? WHERE id = ?`,
		name, joinOrigins(allowedOrigins), time.Now().UTC(), projectID)
}

func (r *projectsRepo) exec(ctx context.Context, query string, args ...any) error {
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
