package service

import (
	"context"
	"testing"

	"github.com/authplatform/passage/internal/auth/store"
	"github.com/authplatform/passage/pkg/cryptox"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := registerVerifiedOwner(t, env, "owner@example.com", "owner password!")

	project, secret, err := env.projects.CreateProject(ctx, owner.ID, "Widget App",
		[]string{"https://widgets.example.com"})
	require.NoError(t, err)

	t.Run("api key is a uuid and the secret only stored hashed", func(t *testing.T) {
		_, err := uuid.Parse(project.APIKey)
		require.NoError(t, err)

		require.NotEqual(t, secret, project.SecretHash)
		require.NoError(t, cryptox.VerifyPassword(secret, project.SecretHash))
	})

	t.Run("lookup by api key", func(t *testing.T) {
		got, err := env.projects.GetProjectByAPIKey(ctx, project.APIKey)
		require.NoError(t, err)
		require.Equal(t, project.ID, got.ID)
	})

	t.Run("update keeps the credentials stable", func(t *testing.T) {
		require.NoError(t, env.projects.UpdateProject(ctx, project.ID, "Widget App v2",
			[]string{"https://v2.example.com"}))

		got, err := env.projects.GetProject(ctx, project.ID)
		require.NoError(t, err)
		require.Equal(t, "Widget App v2", got.Name)
		require.Equal(t, project.APIKey, got.APIKey)
		require.Equal(t, project.SecretHash, got.SecretHash)
		require.Equal(t, []string{"https://v2.example.com"}, got.AllowedOrigins)
	})

	t.Run("list by owner", func(t *testing.T) {
		projects, err := env.projects.ListProjects(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, projects, 1)
	})

	t.Run("unknown project id maps to ErrNotFound", func(t *testing.T) {
		_, err := env.projects.GetProject(ctx, "nonexistent")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
