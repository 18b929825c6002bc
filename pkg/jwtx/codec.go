package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrWeakSecret = errors.New("jwtx: signing secret too short")
)

// MinSecretLen is the minimum HS256 secret length in bytes.
const MinSecretLen = 32

// Codec signs and parses compact HS256 tokens. Ownership of the signing
// secret is process-wide and fixed at startup. The codec has no knowledge of
// principals; expiry and principal-state checks belong to the caller.
type Codec struct {
	secret []byte
}

// NewCodec creates a codec for the given signing secret.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}

	// Defensive copy so the caller can't mutate the key underneath us.
	s := make([]byte, len(secret))
	copy(s, secret)
	return &Codec{secret: s}, nil
}

// Issue produces a signed, time-bounded token for the given claims.
func (c *Codec) Issue(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secret)
}

// Parse verifies the signature and decodes the claims. Expiry is NOT
// enforced here: expired tokens still parse so the caller can project claims
// and decide validity itself.
func (c *Codec) Parse(token string) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		case errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrMalformed
		}
	}

	return claims, nil
}

// Subject returns the sub claim; fails with ErrMalformed/ErrInvalidSig if the
// token does not parse.
func (c *Codec) Subject(token string) (string, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Audience returns the single audience value of the token.
func (c *Codec) Audience(token string) (string, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.PrimaryAudience(), nil
}

// IssuedAt returns the iat claim, or the zero time if absent.
func (c *Codec) IssuedAt(token string) (time.Time, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.IssuedAt == nil {
		return time.Time{}, nil
	}
	return claims.IssuedAt.Time, nil
}

// ExpiresAt returns the exp claim, or the zero time if absent.
func (c *Codec) ExpiresAt(token string) (time.Time, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
