package service

import (
	"context"
	"testing"
	"time"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/store"
	"github.com/authplatform/passage/pkg/jwtx"

	"github.com/stretchr/testify/require"
)

func TestEndUserRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := registerVerifiedOwner(t, env, "owner@example.com", "owner password!")
	project, _, err := env.projects.CreateProject(ctx, owner.ID, "Widget App", nil)
	require.NoError(t, err)
	other, _, err := env.projects.CreateProject(ctx, owner.ID, "Other App", nil)
	require.NoError(t, err)

	t.Run("register assigns the default USER role", func(t *testing.T) {
		user, err := env.endUsers.Register(ctx, project, "amy@example.com", "Amy", "password123!")
		require.NoError(t, err)

		roles, err := env.endUsers.GetRoles(ctx, project.ID, user.ID)
		require.NoError(t, err)
		require.Len(t, roles, 1)
		require.Equal(t, domain.DefaultRoleUser, roles[0].Name)
	})

	t.Run("duplicate email within the project is rejected", func(t *testing.T) {
		_, err := env.endUsers.Register(ctx, project, "amy@example.com", "Amy Again", "password456!")
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("same email under another project is independent", func(t *testing.T) {
		_, err := env.endUsers.Register(ctx, other, "amy@example.com", "Other Amy", "password789!")
		require.NoError(t, err)
	})

	t.Run("verification token is bound to the project", func(t *testing.T) {
		token, err := env.tokens.IssueVerification("amy@example.com", other.APIKey)
		require.NoError(t, err)

		// Redeeming project B's link under project A fails.
		require.ErrorIs(t, env.endUsers.VerifyEmail(ctx, project, token), ErrInvalidToken)
		require.NoError(t, env.endUsers.VerifyEmail(ctx, other, token))
	})
}

func TestEndUserLoginAndValidate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := registerVerifiedOwner(t, env, "owner@example.com", "owner password!")
	project, _, err := env.projects.CreateProject(ctx, owner.ID, "Widget App", nil)
	require.NoError(t, err)
	other, _, err := env.projects.CreateProject(ctx, owner.ID, "Other App", nil)
	require.NoError(t, err)

	user := registerVerifiedEndUser(t, env, project, "ben@example.com", "password123!")

	token, _, _, err := env.endUsers.Login(ctx, project, "ben@example.com", "password123!")
	require.NoError(t, err)

	t.Run("login token carries the apiKey claim", func(t *testing.T) {
		claims, err := env.codec.Parse(token)
		require.NoError(t, err)
		require.Equal(t, project.APIKey, claims.APIKey)
		require.Equal(t, domain.EndUserAudience(project.ID), claims.PrimaryAudience())
	})

	t.Run("validate reports roles and max level", func(t *testing.T) {
		result, err := env.endUsers.ValidateToken(ctx, project, token)
		require.NoError(t, err)
		require.True(t, result.Valid)
		require.Equal(t, "ben@example.com", result.Email)
		require.Equal(t, []string{"USER"}, result.Roles)
		require.Equal(t, domain.DefaultRoleUserLevel, result.MaxRoleLevel)
	})

	t.Run("validate rejects tokens from other projects", func(t *testing.T) {
		result, err := env.endUsers.ValidateToken(ctx, other, token)
		require.NoError(t, err)
		require.False(t, result.Valid)
	})

	t.Run("validate rejects garbage", func(t *testing.T) {
		result, err := env.endUsers.ValidateToken(ctx, project, "garbage")
		require.NoError(t, err)
		require.False(t, result.Valid)
	})

	t.Run("password change invalidates earlier tokens", func(t *testing.T) {
		// Mint a token issued well before the change so the second-precision
		// iat comparison is unambiguous.
		claims := jwtx.NewClaims(user.Email, domain.EndUserAudience(project.ID),
			24*time.Hour, time.Now().UTC().Add(-time.Hour))
		old, err := env.codec.Issue(claims)
		require.NoError(t, err)

		result, err := env.endUsers.ValidateToken(ctx, project, old)
		require.NoError(t, err)
		require.True(t, result.Valid)

		require.NoError(t, env.endUsers.ChangePassword(ctx, project.ID, user.ID, "password123!", "new password!!"))

		result, err = env.endUsers.ValidateToken(ctx, project, old)
		require.NoError(t, err)
		require.False(t, result.Valid)

		fresh, _, _, err := env.endUsers.Login(ctx, project, "ben@example.com", "new password!!")
		require.NoError(t, err)

		result, err = env.endUsers.ValidateToken(ctx, project, fresh)
		require.NoError(t, err)
		require.True(t, result.Valid)
	})

	t.Run("locked user fails validation", func(t *testing.T) {
		require.NoError(t, env.endUsers.SetLocked(ctx, project.ID, user.ID, true))

		fresh, _, _, err := env.endUsers.Login(ctx, project, "ben@example.com", "new password!!")
		require.ErrorIs(t, err, ErrAccountLocked)
		_ = fresh

		require.NoError(t, env.endUsers.SetLocked(ctx, project.ID, user.ID, false))
	})
}

func TestEndUserRoleManagement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := registerVerifiedOwner(t, env, "owner@example.com", "owner password!")
	project, _, err := env.projects.CreateProject(ctx, owner.ID, "Widget App", nil)
	require.NoError(t, err)
	other, _, err := env.projects.CreateProject(ctx, owner.ID, "Other App", nil)
	require.NoError(t, err)

	user := registerVerifiedEndUser(t, env, project, "cal@example.com", "password123!")

	moderator, err := env.roles.CreateRole(ctx, project.ID, "moderator", 600)
	require.NoError(t, err)
	foreignRole, err := env.roles.CreateRole(ctx, other.ID, "moderator", 600)
	require.NoError(t, err)

	t.Run("assigning a foreign project's role is rejected", func(t *testing.T) {
		err := env.endUsers.AssignRole(ctx, project.ID, user.ID, foreignRole.ID)
		require.ErrorIs(t, err, ErrCrossProjectRole)
	})

	t.Run("assign is idempotent", func(t *testing.T) {
		require.NoError(t, env.endUsers.AssignRole(ctx, project.ID, user.ID, moderator.ID))
		require.NoError(t, env.endUsers.AssignRole(ctx, project.ID, user.ID, moderator.ID))

		roles, err := env.endUsers.GetRoles(ctx, project.ID, user.ID)
		require.NoError(t, err)
		require.Len(t, roles, 2)
	})

	t.Run("removing down to one role is fine, removing the last is not", func(t *testing.T) {
		require.NoError(t, env.endUsers.RemoveRole(ctx, project.ID, user.ID, moderator.ID))

		roles, err := env.endUsers.GetRoles(ctx, project.ID, user.ID)
		require.NoError(t, err)
		require.Len(t, roles, 1)

		err = env.endUsers.RemoveRole(ctx, project.ID, user.ID, roles[0].ID)
		require.ErrorIs(t, err, ErrLastRole)
	})

	t.Run("replace swaps the whole set atomically", func(t *testing.T) {
		require.NoError(t, env.endUsers.ReplaceRoles(ctx, project.ID, user.ID, []string{moderator.ID}))

		roles, err := env.endUsers.GetRoles(ctx, project.ID, user.ID)
		require.NoError(t, err)
		require.Len(t, roles, 1)
		require.Equal(t, "MODERATOR", roles[0].Name)
	})

	t.Run("replace rejects an empty set", func(t *testing.T) {
		err := env.endUsers.ReplaceRoles(ctx, project.ID, user.ID, nil)
		require.ErrorIs(t, err, ErrLastRole)
	})

	t.Run("replace rejects foreign roles without partial effect", func(t *testing.T) {
		err := env.endUsers.ReplaceRoles(ctx, project.ID, user.ID, []string{foreignRole.ID})
		require.ErrorIs(t, err, ErrCrossProjectRole)

		roles, err := env.endUsers.GetRoles(ctx, project.ID, user.ID)
		require.NoError(t, err)
		require.Len(t, roles, 1)
		require.Equal(t, "MODERATOR", roles[0].Name)
	})

	t.Run("management lookups are project scoped", func(t *testing.T) {
		_, err := env.endUsers.GetEndUser(ctx, other.ID, user.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		err = env.endUsers.SetLocked(ctx, other.ID, user.ID, true)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestEndUserPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := registerVerifiedOwner(t, env, "owner@example.com", "owner password!")
	projectA, _, err := env.projects.CreateProject(ctx, owner.ID, "App A", nil)
	require.NoError(t, err)
	projectB, _, err := env.projects.CreateProject(ctx, owner.ID, "App B", nil)
	require.NoError(t, err)

	registerVerifiedEndUser(t, env, projectA, "dot@example.com", "password A!")
	registerVerifiedEndUser(t, env, projectB, "dot@example.com", "password B!")

	t.Run("codes are tenant scoped", func(t *testing.T) {
		require.NoError(t, env.endUsers.ForgotPassword(ctx, projectA, "dot@example.com"))
		code := pendingOTP(t, env.otp, endUserOTPKey(projectA.APIKey, "dot@example.com"))

		// Project A's code cannot reset the same address under project B.
		err := env.endUsers.ResetPassword(ctx, projectB, "dot@example.com", code, "hijacked pass")
		require.ErrorIs(t, err, ErrInvalidOTP)

		require.NoError(t, env.endUsers.ResetPassword(ctx, projectA, "dot@example.com", code, "fresh password"))

		_, _, _, err = env.endUsers.Login(ctx, projectA, "dot@example.com", "fresh password")
		require.NoError(t, err)
		_, _, _, err = env.endUsers.Login(ctx, projectB, "dot@example.com", "password B!")
		require.NoError(t, err)
	})

	t.Run("unknown email reports success silently", func(t *testing.T) {
		require.NoError(t, env.endUsers.ForgotPassword(ctx, projectA, "ghost@example.com"))
	})

	t.Run("unverified account is refused and gets no code", func(t *testing.T) {
		_, err := env.endUsers.Register(ctx, projectA, "pending@example.com", "Pending", "some password!")
		require.NoError(t, err)

		err = env.endUsers.ForgotPassword(ctx, projectA, "pending@example.com")
		require.ErrorIs(t, err, ErrEmailNotVerified)

		env.otp.mu.Lock()
		_, pending := env.otp.codes[endUserOTPKey(projectA.APIKey, "pending@example.com")]
		env.otp.mu.Unlock()
		require.False(t, pending)
	})
}
