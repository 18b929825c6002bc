package service

import (
	"context"
	"testing"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/store"

	"github.com/stretchr/testify/require"
)

func TestOwnerRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("register normalizes the email", func(t *testing.T) {
		owner, err := env.owners.Register(ctx, "  Alice@Example.COM ", "Alice", "password123!")
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", owner.Email)
		require.Equal(t, domain.OwnerRoleUser, owner.Role)
		require.False(t, owner.EmailVerified)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		_, err := env.owners.Register(ctx, "alice@example.com", "Other Alice", "password456!")
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("login before verification is rejected", func(t *testing.T) {
		_, _, _, err := env.owners.Login(ctx, "alice@example.com", "password123!")
		require.ErrorIs(t, err, ErrEmailNotVerified)
	})

	t.Run("verification token flips the flag", func(t *testing.T) {
		token, err := env.tokens.IssueVerification("alice@example.com", "")
		require.NoError(t, err)
		require.NoError(t, env.owners.VerifyEmail(ctx, token))

		// Redeeming again is harmless.
		require.NoError(t, env.owners.VerifyEmail(ctx, token))

		_, _, _, err = env.owners.Login(ctx, "alice@example.com", "password123!")
		require.NoError(t, err)
	})

	t.Run("tenant verification token cannot verify a platform account", func(t *testing.T) {
		_, err := env.owners.Register(ctx, "mallory@example.com", "Mallory", "password789!")
		require.NoError(t, err)

		token, err := env.tokens.IssueVerification("mallory@example.com", "some-api-key")
		require.NoError(t, err)
		require.ErrorIs(t, env.owners.VerifyEmail(ctx, token), ErrInvalidToken)
	})

	t.Run("login token cannot verify an email", func(t *testing.T) {
		token, _, _, err := env.owners.Login(ctx, "alice@example.com", "password123!")
		require.NoError(t, err)
		require.ErrorIs(t, env.owners.VerifyEmail(ctx, token), ErrInvalidToken)
	})
}

func TestOwnerLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := registerVerifiedOwner(t, env, "bob@example.com", "password123!")

	t.Run("wrong password", func(t *testing.T) {
		_, _, _, err := env.owners.Login(ctx, "bob@example.com", "nope")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, _, err := env.owners.Login(ctx, "ghost@example.com", "password123!")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("locked account", func(t *testing.T) {
		require.NoError(t, env.owners.SetOwnerLocked(ctx, owner.ID, true))
		_, _, _, err := env.owners.Login(ctx, "bob@example.com", "password123!")
		require.ErrorIs(t, err, ErrAccountLocked)

		require.NoError(t, env.owners.SetOwnerLocked(ctx, owner.ID, false))
		_, _, _, err = env.owners.Login(ctx, "bob@example.com", "password123!")
		require.NoError(t, err)
	})
}

func TestOwnerPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerVerifiedOwner(t, env, "carol@example.com", "old password!!")

	t.Run("unknown email reports success without a code", func(t *testing.T) {
		require.NoError(t, env.owners.ForgotPassword(ctx, "ghost@example.com"))
		require.False(t, env.otp.Consume(ownerOTPKey("ghost@example.com"), "123456"))
	})

	t.Run("unverified account is refused and gets no code", func(t *testing.T) {
		_, err := env.owners.Register(ctx, "pending@example.com", "Pending Owner", "some password!")
		require.NoError(t, err)

		err = env.owners.ForgotPassword(ctx, "pending@example.com")
		require.ErrorIs(t, err, ErrEmailNotVerified)

		env.otp.mu.Lock()
		_, pending := env.otp.codes[ownerOTPKey("pending@example.com")]
		env.otp.mu.Unlock()
		require.False(t, pending)
	})

	t.Run("wrong code is rejected", func(t *testing.T) {
		require.NoError(t, env.owners.ForgotPassword(ctx, "carol@example.com"))
		err := env.owners.ResetPassword(ctx, "carol@example.com", "000000", "whatever pass")
		require.ErrorIs(t, err, ErrInvalidOTP)
	})

	t.Run("valid code resets and is single use", func(t *testing.T) {
		require.NoError(t, env.owners.ForgotPassword(ctx, "carol@example.com"))
		code := pendingOTP(t, env.otp, ownerOTPKey("carol@example.com"))

		require.NoError(t, env.owners.ResetPassword(ctx, "carol@example.com", code, "brand new pass"))

		_, _, _, err := env.owners.Login(ctx, "carol@example.com", "old password!!")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, _, _, err = env.owners.Login(ctx, "carol@example.com", "brand new pass")
		require.NoError(t, err)

		err = env.owners.ResetPassword(ctx, "carol@example.com", code, "again")
		require.ErrorIs(t, err, ErrInvalidOTP)
	})
}

func TestOwnerChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := registerVerifiedOwner(t, env, "dan@example.com", "first password")

	t.Run("wrong current password", func(t *testing.T) {
		err := env.owners.ChangePassword(ctx, owner.ID, "wrong", "second password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("success rotates the password", func(t *testing.T) {
		require.NoError(t, env.owners.ChangePassword(ctx, owner.ID, "first password", "second password"))

		_, _, _, err := env.owners.Login(ctx, "dan@example.com", "second password")
		require.NoError(t, err)
	})
}

func TestOwnerAdminOperations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := registerVerifiedOwner(t, env, "eve@example.com", "password123!")

	t.Run("list includes the account", func(t *testing.T) {
		owners, err := env.owners.ListOwners(ctx)
		require.NoError(t, err)
		require.Len(t, owners, 1)
	})

	t.Run("role change round trip", func(t *testing.T) {
		require.NoError(t, env.owners.SetOwnerRole(ctx, owner.ID, domain.OwnerRoleAdmin))

		got, err := env.owners.GetOwnerByID(ctx, owner.ID)
		require.NoError(t, err)
		require.Equal(t, domain.OwnerRoleAdmin, got.Role)
	})

	t.Run("invalid role rejected", func(t *testing.T) {
		err := env.owners.SetOwnerRole(ctx, owner.ID, domain.OwnerRole("SUPERUSER"))
		require.ErrorIs(t, err, ErrInvalidRoleName)
	})

	t.Run("unknown owner id", func(t *testing.T) {
		err := env.owners.SetOwnerLocked(ctx, "01JUNKJUNKJUNKJUNKJUNKJUNK", true)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestOwnerProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := registerVerifiedOwner(t, env, "faye@example.com", "password123!")

	require.NoError(t, env.owners.UpdateFullName(ctx, owner.ID, "  Faye Valentine "))

	got, err := env.owners.GetOwnerByID(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, "Faye Valentine", got.FullName)
}
