package store

import (
	"context"
	"errors"

	"github.com/authplatform/passage/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. Sub-repositories keep concerns tidy and let
// callers depend only on the slice of the store they touch.
type Store interface {
	Owners() Owners
	Projects() Projects
	ProjectRoles() ProjectRoles
	EndUsers() EndUsers

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to run multi-step writes.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Owners interface {
	// GetOwnerByID returns an owner by id.
	GetOwnerByID(ctx context.Context, id string) (domain.Owner, error)

	// GetOwnerByEmail is used during login and registration checks.
	GetOwnerByEmail(ctx context.Context, email string) (domain.Owner, error)

	// CreateOwner inserts a new owner (id is provided by app via ULID).
	CreateOwner(ctx context.Context, o domain.Owner) error

	// ListOwners returns all owners ordered by creation date (newest first).
	ListOwners(ctx context.Context) ([]domain.Owner, error)

	// UpdateFullName mutates full_name and bumps updated_at.
	UpdateFullName(ctx context.Context, ownerID, fullName string) error

	// UpdatePasswordHash sets the password_hash (argon2) and records
	// password_changed_at so older tokens stop validating.
	UpdatePasswordHash(ctx context.Context, ownerID, newHash string) error

	// MarkEmailVerified flips email_verified and bumps updated_at.
	MarkEmailVerified(ctx context.Context, ownerID string) error

	// SetLocked sets the lock flag for an owner.
	SetLocked(ctx context.Context, ownerID string, locked bool) error

	// SetRole changes the platform role of an owner.
	SetRole(ctx context.Context, ownerID string, role domain.OwnerRole) error
}

type Projects interface {
	// GetProjectByID fetches a project by its id.
	GetProjectByID(ctx context.Context, id string) (domain.Project, error)

	// GetProjectByAPIKey fetches a project by its public API key. This is
	// the hot path of tenant request routing.
	GetProjectByAPIKey(ctx context.Context, apiKey string) (domain.Project, error)

	// ListProjectsByOwner returns the owner's projects, newest first.
	ListProjectsByOwner(ctx context.Context, ownerID string) ([]domain.Project, error)

	// CreateProject inserts a new project (id and api_key generated by app).
	CreateProject(ctx context.Context, p domain.Project) error

	// UpdateProject mutates name and allowed_origins. The api_key and
	// secret_hash columns are immutable after insert.
	UpdateProject(ctx context.Context, projectID, name string, allowedOrigins []string) error
}

type ProjectRoles interface {
	// GetRoleByID fetches a role and verifies it belongs to the project.
	GetRoleByID(ctx context.Context, projectID, roleID string) (domain.ProjectRole, error)

	// GetRoleByName fetches a role by its normalized name within a project.
	GetRoleByName(ctx context.Context, projectID, name string) (domain.ProjectRole, error)

	// ListRoles returns all roles of a project ordered by level descending.
	ListRoles(ctx context.Context, projectID string) ([]domain.ProjectRole, error)

	// CreateRole inserts a new role (id is ULID, name already normalized).
	CreateRole(ctx context.Context, r domain.ProjectRole) error

	// UpdateRole modifies name and level of a role.
	UpdateRole(ctx context.Context, roleID, name string, level int) error

	// DeleteRole removes a role. Assignments referencing it must be cleared
	// first; the service layer checks usage before calling this.
	DeleteRole(ctx context.Context, roleID string) error

	// CountAssignments returns how many end-users currently hold the role.
	CountAssignments(ctx context.Context, roleID string) (int, error)
}

type EndUsers interface {
	// GetEndUserByID fetches an end-user and verifies project membership.
	GetEndUserByID(ctx context.Context, projectID, id string) (domain.EndUser, error)

	// GetEndUserByEmail fetches by email within a project. Email is only
	// unique per project, never globally.
	GetEndUserByEmail(ctx context.Context, projectID, email string) (domain.EndUser, error)

	// ListEndUsers returns a project's end-users, newest first.
	ListEndUsers(ctx context.Context, projectID string) ([]domain.EndUser, error)

	// CreateEndUser inserts a new end-user (id is ULID).
	CreateEndUser(ctx context.Context, u domain.EndUser) error

	// UpdateFullName mutates full_name and bumps updated_at.
	UpdateFullName(ctx context.Context, endUserID, fullName string) error

	// UpdatePasswordHash sets the password_hash (argon2) and records
	// password_changed_at so older tokens stop validating.
	UpdatePasswordHash(ctx context.Context, endUserID, newHash string) error

	// MarkEmailVerified flips email_verified and bumps updated_at.
	MarkEmailVerified(ctx context.Context, endUserID string) error

	// SetLocked sets the lock flag for an end-user.
	SetLocked(ctx context.Context, endUserID string, locked bool) error

	// GetRoles returns the end-user's assigned roles ordered by level descending.
	GetRoles(ctx context.Context, endUserID string) ([]domain.ProjectRole, error)

	// AssignRole links a role to an end-user. Assigning an already held
	// role returns ErrAlreadyExists.
	AssignRole(ctx context.Context, endUserID, roleID string) error

	// RemoveRole unlinks a role from an end-user.
	RemoveRole(ctx context.Context, endUserID, roleID string) error

	// CountRoles returns the number of roles currently held by the end-user.
	CountRoles(ctx context.Context, endUserID string) (int, error)
}
