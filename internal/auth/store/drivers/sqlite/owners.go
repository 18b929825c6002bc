package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/authplatform/passage/internal/auth/domain"
)

type ownersRepo struct {
	db queryer
}

const ownerColumns = `id, email, full_name, password_hash, role, email_verified, locked, password_changed_at, created_at, updated_at`

func scanOwner(row interface{ Scan(...any) error }) (domain.Owner, error) {
	var (
		o         domain.Owner
		role      string
		changedAt sql.NullTime
	)
	err := row.Scan(&o.ID, &o.Email, &o.FullName, &o.PasswordHash, &role,
		&o.EmailVerified, &o.Locked, &changedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Owner{}, err
	}
	o.Role = domain.OwnerRole(role)
	o.PasswordChangedAt = mapNullTimePtr(changedAt)
	return o, nil
}

func (r *ownersRepo) GetOwnerByID(ctx context.Context, id string) (domain.Owner, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ownerColumns+` FROM owners WHERE id = ?`, id)
	o, err := scanOwner(row)
	if err != nil {
		return domain.Owner{}, mapNotFound(err)
	}
	return o, nil
}

func (r *ownersRepo) GetOwnerByEmail(ctx context.Context, email string) (domain.Owner, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ownerColumns+` FROM owners WHERE email = ?`, email)
	o, err := scanOwner(row)
	if err != nil {
		return domain.Owner{}, mapNotFound(err)
	}
	return o, nil
}

func (r *ownersRepo) CreateOwner(ctx context.Context, o domain.Owner) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO owners (`+ownerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Email, o.FullName, o.PasswordHash, string(o.Role),
		o.EmailVerified, o.Locked, mapOptionalTime(o.PasswordChangedAt),
		o.CreatedAt, o.UpdatedAt)
	return mapConstraint(err)
}

func (r *ownersRepo) ListOwners(ctx context.Context) ([]domain.Owner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ownerColumns+` FROM owners ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Owner
	for rows.Next() {
		o, err := scanOwner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *ownersRepo) UpdateFullName(ctx context.Context, ownerID, fullName string) error {
	return r.exec(ctx,
		`UPDATE owners SET full_name = ?, updated_at = ? WHERE id = ?`,
		fullName, time.Now().UTC(), ownerID)
}

func (r *ownersRepo) UpdatePasswordHash(ctx context.Context, ownerID, newHash string) error {
	now := time.Now().UTC()
	return r.exec(ctx,
		`UPDATE owners SET password_hash = ?, password_changed_at = ?, updated_at = ? WHERE id = ?`,
		newHash, now, now, ownerID)
}

func (r *ownersRepo) MarkEmailVerified(ctx context.Context, ownerID string) error {
	return r.exec(ctx,
		`UPDATE owners SET email_verified = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), ownerID)
}

func (r *ownersRepo) SetLocked(ctx context.Context, ownerID string, locked bool) error {
	return r.exec(ctx,
		`UPDATE owners SET locked = ?, updated_at = ? WHERE id = ?`,
		locked, time.Now().UTC(), ownerID)
}

func (r *ownersRepo) SetRole(ctx context.Context, ownerID string, role domain.OwnerRole) error {
	return r.exec(ctx,
		`UPDATE owners SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), time.Now().UTC(), ownerID)
}

// exec runs an update and maps a zero-row result to ErrNotFound so callers
// never silently update nothing.
func (r *ownersRepo) exec(ctx context.Context, query string, args ...any) error {
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
