package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAPISecret(t *testing.T) {
	seen := make(map[string]bool, 50)
	for range 50 {
		secret, err := GenerateAPISecret()
		require.NoError(t, err)
		require.Len(t, secret, 43, "32 bytes base64url without padding")
		require.NotContains(t, seen, secret, "duplicate secret generated")
		seen[secret] = true
	}
}

func TestGenerateAPISecret_HashRoundTrip(t *testing.T) {
	secret, err := GenerateAPISecret()
	require.NoError(t, err)

	hash, err := HashPassword(secret)
	require.NoError(t, err)

	require.NoError(t, VerifyPassword(secret, hash))
	require.Error(t, VerifyPassword(secret+"x", hash))
}

func TestGenerateResetCode(t *testing.T) {
	for range 100 {
		code, err := GenerateResetCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			require.True(t, c >= '0' && c <= '9', "reset code must be numeric")
		}
	}
}
