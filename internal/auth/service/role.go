package service

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/store"
	"github.com/authplatform/passage/pkg/idx"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var roleNamePattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

// stripMarks removes combining diacritical marks, so "modéRATeur" and
// "moderateur" normalize to the same role name.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeRoleName canonicalizes a role name: trims, strips diacritics,
// collapses whitespace runs to single underscores and upper-cases. Returns
// ErrInvalidRoleName when nothing usable remains.
func NormalizeRoleName(name string) (string, error) {
	stripped, _, err := transform.String(stripMarks, strings.TrimSpace(name))
	if err != nil {
		return "", ErrInvalidRoleName
	}

	normalized := strings.ToUpper(strings.Join(strings.Fields(stripped), "_"))
	if !roleNamePattern.MatchString(normalized) {
		return "", ErrInvalidRoleName
	}
	return normalized, nil
}

// RoleService manages the per-project role catalog.
type RoleService struct {
	Store store.Store
}

// ListRoles returns a project's roles ordered by level descending.
func (s *RoleService) ListRoles(ctx context.Context, projectID string) ([]domain.ProjectRole, error) {
	return s.Store.ProjectRoles().ListRoles(ctx, projectID)
}

// GetRole fetches a role, scoped to the project so ids from other tenants
// never resolve.
func (s *RoleService) GetRole(ctx context.Context, projectID, roleID string) (domain.ProjectRole, error) {
	return s.Store.ProjectRoles().GetRoleByID(ctx, projectID, roleID)
}

// CreateRole adds a role to the project. The name is stored normalized and
// must be unique within the project.
func (s *RoleService) CreateRole(ctx context.Context, projectID, name string, level int) (domain.ProjectRole, error) {
	normalized, err := NormalizeRoleName(name)
	if err != nil {
		return domain.ProjectRole{}, err
	}

	now := time.Now().UTC()
	role := domain.ProjectRole{
		ID:        idx.New().String(),
		ProjectID: projectID,
		Name:      normalized,
		Level:     level,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Store.ProjectRoles().CreateRole(ctx, role); err != nil {
		return domain.ProjectRole{}, err
	}
	return role, nil
}

// UpdateRole renames or re-levels a role. The seeded USER and ADMIN roles
// are immutable.
func (s *RoleService) UpdateRole(ctx context.Context, projectID, roleID, name string, level int) (domain.ProjectRole, error) {
	role, err := s.Store.ProjectRoles().GetRoleByID(ctx, projectID, roleID)
	if err != nil {
		return domain.ProjectRole{}, err
	}
	if role.IsDefault() {
		return domain.ProjectRole{}, ErrProtectedRole
	}

	normalized, err := NormalizeRoleName(name)
	if err != nil {
		return domain.ProjectRole{}, err
	}

	if err := s.Store.ProjectRoles().UpdateRole(ctx, roleID, normalized, level); err != nil {
		return domain.ProjectRole{}, err
	}

	role.Name = normalized
	role.Level = level
	return role, nil
}

// DeleteRole removes a role. Default roles and roles still held by any
// end-user are protected.
func (s *RoleService) DeleteRole(ctx context.Context, projectID, roleID string) error {
	role, err := s.Store.ProjectRoles().GetRoleByID(ctx, projectID, roleID)
	if err != nil {
		return err
	}
	if role.IsDefault() {
		return ErrProtectedRole
	}

	count, err := s.Store.ProjectRoles().CountAssignments(ctx, roleID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrRoleInUse
	}

	return s.Store.ProjectRoles().DeleteRole(ctx, roleID)
}
