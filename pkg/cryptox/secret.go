package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// APISecretSize is the entropy (in bytes) of a generated project API secret.
const APISecretSize = 32

// GenerateAPISecret creates a cryptographically secure opaque secret,
// base64url-encoded without padding. The plaintext is shown to the caller
// exactly once; only its argon2id hash is ever persisted.
func GenerateAPISecret() (string, error) {
	buf := make([]byte, APISecretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateResetCode returns a uniformly random 6-digit numeric code,
// zero-padded, for password-reset delivery over email.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
