package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultLoginTTL is the default lifetime for login tokens. Short enough to
// bound stolen-token exposure, long enough to avoid constant re-login.
const DefaultLoginTTL = 24 * time.Hour

// Claims are the token claims used across the service. The audience carries
// the principal domain; Role and APIKey are only ever set for their
// respective token kinds.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the platform role name, set on owner login tokens.
	Role string `json:"role,omitempty"`

	// APIKey is the project's public API key, set on end-user login tokens.
	APIKey string `json:"apiKey,omitempty"`
}

// NewClaims builds minimally-correct claims for a token bound to a single
// audience. Extra claims (Role, APIKey) are set by the caller.
func NewClaims(subject, audience string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

// PrimaryAudience returns the first audience value, or "" when absent.
// Tokens issued by this service always carry exactly one audience.
func (c *Claims) PrimaryAudience() string {
	if len(c.Audience) == 0 {
		return ""
	}
	return c.Audience[0]
}

// Expired reports whether the token is past its expiry at the given time.
// A token without an exp claim is treated as expired.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return now.After(c.ExpiresAt.Time)
}
