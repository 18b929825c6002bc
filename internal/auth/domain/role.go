package domain

import "time"

// Default roles seeded with every project. They are ordinary rows except
// that they cannot be deleted.
const (
	DefaultRoleUser  = "USER"
	DefaultRoleAdmin = "ADMIN"

	DefaultRoleUserLevel  = 10
	DefaultRoleAdminLevel = 1000
)

// ProjectRole is a tenant-scoped role. Name is stored normalized (diacritics
// stripped, spaces collapsed to underscores, upper-cased) and is unique per
// project. Level is the privilege rank authorization decisions run on.
type ProjectRole struct {
	ID        string
	ProjectID string
	Name      string
	Level     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsDefault reports whether the role is one of the protected seed roles.
func (r ProjectRole) IsDefault() bool {
	return r.Name == DefaultRoleUser || r.Name == DefaultRoleAdmin
}
