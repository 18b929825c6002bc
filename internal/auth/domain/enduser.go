package domain

import "time"

// EndUser is a project-scoped identity. Email is unique within its project
// only; the same address may exist independently under other projects.
type EndUser struct {
	ID            string
	ProjectID     string
	Email         string
	FullName      string
	PasswordHash  string // argon2id encoded
	EmailVerified bool
	Locked        bool

	// PasswordChangedAt, when set, retroactively invalidates every login
	// token issued before it.
	PasswordChangedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MaxRoleLevel returns the highest level across the given roles, or 0 for an
// empty set.
func MaxRoleLevel(roles []ProjectRole) int {
	level := 0
	for _, r := range roles {
		if r.Level > level {
			level = r.Level
		}
	}
	return level
}
