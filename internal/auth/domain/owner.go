package domain

import "time"

// OwnerRole is the platform-level role of an account holder. Unlike project
// roles these are a fixed enumeration.
type OwnerRole string

const (
	OwnerRoleUser  OwnerRole = "USER"
	OwnerRoleAdmin OwnerRole = "ADMIN"
)

// Valid reports whether r is one of the known platform roles.
func (r OwnerRole) Valid() bool {
	return r == OwnerRoleUser || r == OwnerRoleAdmin
}

// Owner is a platform account holder. Email is the unique login key.
type Owner struct {
	ID            string
	Email         string
	FullName      string
	PasswordHash  string // argon2id encoded
	Role          OwnerRole
	EmailVerified bool
	Locked        bool

	// PasswordChangedAt, when set, retroactively invalidates every login
	// token issued before it.
	PasswordChangedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
