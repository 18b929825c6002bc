package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/store"
	"github.com/authplatform/passage/pkg/idx"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	// Shared cache keeps the in-memory database alive across pool connections.
	s, err := NewStore("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestOwner(email string) domain.Owner {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Owner{
		ID:           idx.New().String(),
		Email:        email,
		FullName:     "Test Owner",
		PasswordHash: "$argon2id$fake",
		Role:         domain.OwnerRoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newTestProject(ownerID string) domain.Project {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Project{
		ID:             idx.New().String(),
		Name:           "Widget App",
		APIKey:         idx.New().String(),
		SecretHash:     "$argon2id$fake",
		OwnerID:        ownerID,
		AllowedOrigins: []string{"https://widgets.example.com"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestOwnersRepo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := newTestOwner("alice@example.com")
	require.NoError(t, s.Owners().CreateOwner(ctx, owner))

	t.Run("duplicate email rejected", func(t *testing.T) {
		dup := newTestOwner("alice@example.com")
		err := s.Owners().CreateOwner(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("lookup by email and id", func(t *testing.T) {
		got, err := s.Owners().GetOwnerByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, owner.ID, got.ID)
		require.False(t, got.EmailVerified)
		require.Nil(t, got.PasswordChangedAt)

		got, err = s.Owners().GetOwnerByID(ctx, owner.ID)
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", got.Email)
	})

	t.Run("missing owner maps to ErrNotFound", func(t *testing.T) {
		_, err := s.Owners().GetOwnerByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("password change stamps password_changed_at", func(t *testing.T) {
		require.NoError(t, s.Owners().UpdatePasswordHash(ctx, owner.ID, "$argon2id$new"))

		got, err := s.Owners().GetOwnerByID(ctx, owner.ID)
		require.NoError(t, err)
		require.Equal(t, "$argon2id$new", got.PasswordHash)
		require.NotNil(t, got.PasswordChangedAt)
	})

	t.Run("verify and lock flags", func(t *testing.T) {
		require.NoError(t, s.Owners().MarkEmailVerified(ctx, owner.ID))
		require.NoError(t, s.Owners().SetLocked(ctx, owner.ID, true))
		require.NoError(t, s.Owners().SetRole(ctx, owner.ID, domain.OwnerRoleAdmin))

		got, err := s.Owners().GetOwnerByID(ctx, owner.ID)
		require.NoError(t, err)
		require.True(t, got.EmailVerified)
		require.True(t, got.Locked)
		require.Equal(t, domain.OwnerRoleAdmin, got.Role)
	})

	t.Run("update on unknown id maps to ErrNotFound", func(t *testing.T) {
		err := s.Owners().SetLocked(ctx, idx.New().String(), true)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestProjectsRepo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := newTestOwner("bob@example.com")
	require.NoError(t, s.Owners().CreateOwner(ctx, owner))

	project := newTestProject(owner.ID)
	require.NoError(t, s.Projects().CreateProject(ctx, project))

	t.Run("lookup by api key", func(t *testing.T) {
		got, err := s.Projects().GetProjectByAPIKey(ctx, project.APIKey)
		require.NoError(t, err)
		require.Equal(t, project.ID, got.ID)
		require.Equal(t, []string{"https://widgets.example.com"}, got.AllowedOrigins)
	})

	t.Run("duplicate api key rejected", func(t *testing.T) {
		dup := newTestProject(owner.ID)
		dup.APIKey = project.APIKey
		err := s.Projects().CreateProject(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("list by owner", func(t *testing.T) {
		projects, err := s.Projects().ListProjectsByOwner(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, projects, 1)
	})

	t.Run("update leaves the credentials untouched", func(t *testing.T) {
		require.NoError(t, s.Projects().UpdateProject(ctx, project.ID, "Widget App v2", nil))

		got, err := s.Projects().GetProjectByID(ctx, project.ID)
		require.NoError(t, err)
		require.Equal(t, "Widget App v2", got.Name)
		require.Empty(t, got.AllowedOrigins)
		require.Equal(t, project.APIKey, got.APIKey)
		require.Equal(t, project.SecretHash, got.SecretHash)
	})

	t.Run("update on unknown id maps to ErrNotFound", func(t *testing.T) {
		err := s.Projects().UpdateProject(ctx, idx.New().String(), "Ghost", nil)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestEndUsersRepo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := newTestOwner("carol@example.com")
	require.NoError(t, s.Owners().CreateOwner(ctx, owner))
	project := newTestProject(owner.ID)
	require.NoError(t, s.Projects().CreateProject(ctx, project))
	other := newTestProject(owner.ID)
	require.NoError(t, s.Projects().CreateProject(ctx, other))

	now := time.Now().UTC().Truncate(time.Second)
	user := domain.EndUser{
		ID: idx.New().String(), ProjectID: project.ID, Email: "dave@example.com",
		FullName: "Dave", PasswordHash: "$argon2id$fake",
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.EndUsers().CreateEndUser(ctx, user))

	t.Run("email unique per project only", func(t *testing.T) {
		dup := user
		dup.ID = idx.New().String()
		require.ErrorIs(t, s.EndUsers().CreateEndUser(ctx, dup), store.ErrAlreadyExists)

		// Same email under another project is fine.
		dup.ProjectID = other.ID
		require.NoError(t, s.EndUsers().CreateEndUser(ctx, dup))
	})

	t.Run("lookup scoped by project", func(t *testing.T) {
		got, err := s.EndUsers().GetEndUserByEmail(ctx, project.ID, "dave@example.com")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)

		_, err = s.EndUsers().GetEndUserByID(ctx, other.ID, user.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("role assignment round trip", func(t *testing.T) {
		role := domain.ProjectRole{
			ID: idx.New().String(), ProjectID: project.ID, Name: "USER", Level: 10,
			CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, s.ProjectRoles().CreateRole(ctx, role))
		require.NoError(t, s.EndUsers().AssignRole(ctx, user.ID, role.ID))

		// Assigning the same role twice is a constraint violation.
		require.ErrorIs(t, s.EndUsers().AssignRole(ctx, user.ID, role.ID), store.ErrAlreadyExists)

		roles, err := s.EndUsers().GetRoles(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, roles, 1)
		require.Equal(t, 10, roles[0].Level)

		count, err := s.ProjectRoles().CountAssignments(ctx, role.ID)
		require.NoError(t, err)
		require.Equal(t, 1, count)

		require.NoError(t, s.EndUsers().RemoveRole(ctx, user.ID, role.ID))
		count, err = s.EndUsers().CountRoles(ctx, user.ID)
		require.NoError(t, err)
		require.Zero(t, count)
	})
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := newTestOwner("erin@example.com")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Owners().CreateOwner(ctx, owner); err != nil {
			return err
		}
		return context.Canceled // force rollback
	})
	require.Error(t, err)

	_, err = s.Owners().GetOwnerByEmail(ctx, owner.Email)
	require.ErrorIs(t, err, store.ErrNotFound)
}
