package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/store"
	"github.com/authplatform/passage/pkg/cryptox"
	"github.com/authplatform/passage/pkg/jwtx"
	"github.com/authplatform/passage/pkg/slogx"
)

// AuthService resolves request credentials to an Identity. It runs once per
// request from middleware and is idempotent: the same credentials always
// resolve to the same principal state.
type AuthService struct {
	Codec *jwtx.Codec
	Store store.Store
}

// Authenticate tries the bearer token first, then the API key header pair.
// Every failure mode leaves the request unauthenticated (nil identity)
// instead of erroring, so public routes are unaffected by stale or bogus
// credentials riding along.
func (s *AuthService) Authenticate(ctx context.Context, bearerToken, apiKey, apiSecret string) domain.Identity {
	if bearerToken != "" {
		if id := s.authenticateBearer(ctx, bearerToken); id != nil {
			return id
		}
	}
	if apiKey != "" && apiSecret != "" {
		return s.authenticateAPIKey(ctx, apiKey, apiSecret)
	}
	return nil
}

// authenticateBearer parses the token and routes principal resolution on the
// audience claim.
func (s *AuthService) authenticateBearer(ctx context.Context, token string) domain.Identity {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Parse(token)
	if err != nil {
		l.Debug("bearer token rejected", "error", err)
		return nil
	}

	now := time.Now().UTC()
	aud := claims.PrimaryAudience()

	switch {
	case aud == domain.AudienceOwnerPlatform:
		owner, err := s.Store.Owners().GetOwnerByEmail(ctx, claims.Subject)
		if err != nil {
			return nil
		}
		if owner.Locked {
			l.Debug("bearer token for locked owner", slog.String("owner_id", owner.ID))
			return nil
		}
		if !tokenValidForPrincipal(claims, owner.Email, owner.PasswordChangedAt, now) {
			return nil
		}
		return domain.OwnerIdentity{Owner: owner}

	default:
		projectID, ok := domain.ParseEndUserAudience(aud)
		if !ok {
			// Verification tokens and anything else never authenticate a request.
			return nil
		}
		user, err := s.Store.EndUsers().GetEndUserByEmail(ctx, projectID, claims.Subject)
		if err != nil {
			return nil
		}
		if user.Locked {
			l.Debug("bearer token for locked end-user", slog.String("end_user_id", user.ID))
			return nil
		}
		if !tokenValidForPrincipal(claims, user.Email, user.PasswordChangedAt, now) {
			return nil
		}
		roles, err := s.Store.EndUsers().GetRoles(ctx, user.ID)
		if err != nil {
			return nil
		}
		return domain.EndUserIdentity{EndUser: user, Roles: roles, Token: token}
	}
}

// authenticateAPIKey authenticates a tenant backend by its key pair. A valid
// pair acts on behalf of the project's owner.
func (s *AuthService) authenticateAPIKey(ctx context.Context, apiKey, apiSecret string) domain.Identity {
	l := slogx.FromContext(ctx)

	project, err := s.Store.Projects().GetProjectByAPIKey(ctx, apiKey)
	if err != nil {
		return nil
	}
	if cryptox.VerifyPassword(apiSecret, project.SecretHash) != nil {
		l.Debug("api secret mismatch", slog.String("project_id", project.ID))
		return nil
	}

	owner, err := s.Store.Owners().GetOwnerByID(ctx, project.OwnerID)
	if err != nil || owner.Locked {
		return nil
	}
	return domain.OwnerIdentity{Owner: owner}
}

// tokenValidForPrincipal applies the principal-state checks that come after
// a token parses: the subject must match, the token must be unexpired, and
// it must have been issued after the principal's last password change.
func tokenValidForPrincipal(claims jwtx.Claims, email string, passwordChangedAt *time.Time, now time.Time) bool {
	if claims.Subject != email {
		return false
	}
	if claims.Expired(now) {
		return false
	}
	if passwordChangedAt != nil {
		if claims.IssuedAt == nil {
			return false
		}
		// iat has second precision; truncate the comparison point so a
		// token minted in the same second as the change still passes.
		if claims.IssuedAt.Time.Before(passwordChangedAt.Truncate(time.Second)) {
			return false
		}
	}
	return true
}
