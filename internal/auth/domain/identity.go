package domain

// Identity is the authenticated principal attached to a request. It is a
// sealed interface: the only implementations are OwnerIdentity and
// EndUserIdentity. A nil Identity means the request is unauthenticated.
type Identity interface {
	isIdentity()

	// PrincipalID returns the underlying record's id.
	PrincipalID() string

	// Authorities returns one authority string per held role.
	Authorities() []string
}

// IsAuthenticated reports whether id carries an authenticated principal.
func IsAuthenticated(id Identity) bool { return id != nil }

// OwnerIdentity is an authenticated platform account holder.
type OwnerIdentity struct {
	Owner Owner
}

func (OwnerIdentity) isIdentity() {}

func (i OwnerIdentity) PrincipalID() string { return i.Owner.ID }

func (i OwnerIdentity) Authorities() []string {
	return []string{string(i.Owner.Role)}
}

// EndUserIdentity is an authenticated project end-user. Roles is the user's
// full role set at authentication time; Token is the raw bearer token so
// handlers can recover the acting API key claim.
type EndUserIdentity struct {
	EndUser EndUser
	Roles   []ProjectRole
	Token   string
}

func (EndUserIdentity) isIdentity() {}

func (i EndUserIdentity) PrincipalID() string { return i.EndUser.ID }

func (i EndUserIdentity) Authorities() []string {
	out := make([]string, 0, len(i.Roles))
	for _, r := range i.Roles {
		out = append(out, "ROLE_"+r.Name)
	}
	return out
}

// MaxRoleLevel returns the highest role level held by the end-user.
func (i EndUserIdentity) MaxRoleLevel() int {
	return MaxRoleLevel(i.Roles)
}
