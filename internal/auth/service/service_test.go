package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/store/drivers/sqlite"
	"github.com/authplatform/passage/pkg/cryptox"
	"github.com/authplatform/passage/pkg/jwtx"
	"github.com/authplatform/passage/pkg/mailx"

	"github.com/stretchr/testify/require"
)

// testEnv wires every service against a fresh in-memory database, mirroring
// the production wiring in internal/auth/app.
type testEnv struct {
	store    *sqlite.Store
	codec    *jwtx.Codec
	tokens   *TokenService
	otp      *OTPStore
	auth     *AuthService
	perms    *PermissionService
	owners   *OwnerService
	projects *ProjectService
	roles    *RoleService
	endUsers *EndUserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	// Password hashing needs a pepper file before the first hash.
	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.NewStore("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewCodec([]byte("test-secret-test-secret-test-secret!"))
	require.NoError(t, err)

	tokens := &TokenService{Codec: codec, LoginTTL: time.Hour}
	otp := NewOTPStore(logger, DefaultOTPTTL)
	mail := mailx.NewDispatcher(&mailx.LogSender{Logger: logger}, logger)

	return &testEnv{
		store:    st,
		codec:    codec,
		tokens:   tokens,
		otp:      otp,
		auth:     &AuthService{Codec: codec, Store: st},
		perms:    &PermissionService{Store: st},
		owners:   &OwnerService{Store: st, Tokens: tokens, Mail: mail, OTP: otp, BaseURL: "http://localhost:8080"},
		projects: &ProjectService{Store: st},
		roles:    &RoleService{Store: st},
		endUsers: &EndUserService{Store: st, Tokens: tokens, Mail: mail, OTP: otp, BaseURL: "http://localhost:8080"},
	}
}

// registerVerifiedOwner runs the real registration and verification flow and
// returns the resulting owner.
func registerVerifiedOwner(t *testing.T, env *testEnv, email, password string) domain.Owner {
	t.Helper()
	ctx := context.Background()

	owner, err := env.owners.Register(ctx, email, "Test Owner", password)
	require.NoError(t, err)

	token, err := env.tokens.IssueVerification(email, "")
	require.NoError(t, err)
	require.NoError(t, env.owners.VerifyEmail(ctx, token))

	owner, err = env.owners.GetOwnerByID(ctx, owner.ID)
	require.NoError(t, err)
	require.True(t, owner.EmailVerified)
	return owner
}

// registerVerifiedEndUser does the same for a tenant account.
func registerVerifiedEndUser(t *testing.T, env *testEnv, project domain.Project, email, password string) domain.EndUser {
	t.Helper()
	ctx := context.Background()

	user, err := env.endUsers.Register(ctx, project, email, "Test User", password)
	require.NoError(t, err)

	token, err := env.tokens.IssueVerification(email, project.APIKey)
	require.NoError(t, err)
	require.NoError(t, env.endUsers.VerifyEmail(ctx, project, token))

	user, err = env.endUsers.GetEndUser(ctx, project.ID, user.ID)
	require.NoError(t, err)
	return user
}

// pendingOTP reads the code currently stored for key. White-box on purpose:
// production code never exposes pending codes.
func pendingOTP(t *testing.T, otp *OTPStore, key string) string {
	t.Helper()

	otp.mu.Lock()
	defer otp.mu.Unlock()

	entry, ok := otp.codes[key]
	require.True(t, ok, "no pending otp for key %q", key)
	return entry.code
}
