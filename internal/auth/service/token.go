package service

import (
	"time"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/pkg/jwtx"
)

// VerificationTTL bounds how long an email-verification link stays usable.
const VerificationTTL = 15 * time.Minute

// TokenService mints the three token kinds the platform issues. Every token
// carries exactly one audience; the audience alone decides how the bearer is
// resolved back to a principal.
type TokenService struct {
	Codec    *jwtx.Codec
	LoginTTL time.Duration
}

func (s *TokenService) loginTTL() time.Duration {
	if s.LoginTTL <= 0 {
		return jwtx.DefaultLoginTTL
	}
	return s.LoginTTL
}

// IssueOwnerLogin mints a platform login token. The role claim snapshots the
// owner's platform role at issue time.
func (s *TokenService) IssueOwnerLogin(o domain.Owner) (string, time.Time, error) {
	now := time.Now().UTC()
	claims := jwtx.NewClaims(o.Email, domain.AudienceOwnerPlatform, s.loginTTL(), now)
	claims.Role = string(o.Role)

	token, err := s.Codec.Issue(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// IssueEndUserLogin mints a tenant login token scoped to the user's project.
// The apiKey claim lets relying parties see which key the session came in on.
func (s *TokenService) IssueEndUserLogin(u domain.EndUser, apiKey string) (string, time.Time, error) {
	now := time.Now().UTC()
	claims := jwtx.NewClaims(u.Email, domain.EndUserAudience(u.ProjectID), s.loginTTL(), now)
	claims.APIKey = apiKey

	token, err := s.Codec.Issue(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// IssueVerification mints an email-verification token. apiKey is empty for
// owner verification and set to the project's API key for end-users, which
// is how VerifyEmail later routes the address to the right principal table.
func (s *TokenService) IssueVerification(email, apiKey string) (string, error) {
	now := time.Now().UTC()
	claims := jwtx.NewClaims(email, domain.AudienceEmailVerification, VerificationTTL, now)
	claims.APIKey = apiKey

	return s.Codec.Issue(claims)
}
