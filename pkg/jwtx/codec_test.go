package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testSecret)
	require.NoError(t, err)
	return c
}

func TestNewCodecRejectsWeakSecret(t *testing.T) {
	t.Parallel()

	_, err := NewCodec([]byte("short"))
	require.ErrorIs(t, err, ErrWeakSecret)
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	now := time.Now().UTC().Truncate(time.Second)

	claims := NewClaims("alice@example.com", "OWNER_PLATFORM", time.Hour, now)
	claims.Role = "ADMIN"

	token, err := c.Issue(claims)
	require.NoError(t, err)

	parsed, err := c.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", parsed.Subject)
	require.Equal(t, "OWNER_PLATFORM", parsed.PrimaryAudience())
	require.Equal(t, "ADMIN", parsed.Role)
	require.Equal(t, now.Unix(), parsed.IssuedAt.Unix())
	require.Equal(t, now.Add(time.Hour).Unix(), parsed.ExpiresAt.Unix())
}

func TestParseRejectsTamperedToken(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	token, err := c.Issue(NewClaims("a@x.com", "OWNER_PLATFORM", time.Hour, time.Now()))
	require.NoError(t, err)

	other, err := NewCodec([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	_, err = other.Parse(token)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)

	for _, token := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := c.Parse(token)
		require.ErrorIs(t, err, ErrMalformed, "token %q", token)
	}
}

func TestExpiredTokenStillParses(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	issued := time.Now().Add(-2 * time.Hour)

	token, err := c.Issue(NewClaims("a@x.com", "EMAIL_VERIFICATION", time.Hour, issued))
	require.NoError(t, err)

	claims, err := c.Parse(token)
	require.NoError(t, err, "expiry is the validity evaluator's concern, not the codec's")
	require.True(t, claims.Expired(time.Now()))
}

func TestClaimProjections(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	now := time.Now().UTC().Truncate(time.Second)

	claims := NewClaims("u@p.com", "END_USER_PROJECT:01ABC", 30*time.Minute, now)
	claims.APIKey = "key-123"
	token, err := c.Issue(claims)
	require.NoError(t, err)

	sub, err := c.Subject(token)
	require.NoError(t, err)
	require.Equal(t, "u@p.com", sub)

	aud, err := c.Audience(token)
	require.NoError(t, err)
	require.Equal(t, "END_USER_PROJECT:01ABC", aud)

	iat, err := c.IssuedAt(token)
	require.NoError(t, err)
	require.Equal(t, now.Unix(), iat.Unix())

	exp, err := c.ExpiresAt(token)
	require.NoError(t, err)
	require.Equal(t, now.Add(30*time.Minute).Unix(), exp.Unix())

	_, err = c.Subject("not-a-token")
	require.ErrorIs(t, err, ErrMalformed)
}
