package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/store"
	"github.com/authplatform/passage/pkg/cryptox"
	"github.com/authplatform/passage/pkg/idx"
	"github.com/authplatform/passage/pkg/mailx"
	"github.com/authplatform/passage/pkg/slogx"
)

// EndUserService handles the tenant-side account lifecycle plus the
// management operations project admins perform on their users. Public
// operations take the already-resolved project (looked up by API key in the
// router) so tenant scoping can never be forgotten.
type EndUserService struct {
	Store  store.Store
	Tokens *TokenService
	Mail   *mailx.Dispatcher
	OTP    *OTPStore

	// BaseURL is the public URL of this service, used in verification links.
	BaseURL string
}

func endUserOTPKey(apiKey, email string) string { return apiKey + ":" + email }

// Register creates an end-user under the project, assigns the default USER
// role and dispatches the verification mail.
func (s *EndUserService) Register(ctx context.Context, project domain.Project, email, fullName, password string) (domain.EndUser, error) {
	email = normalizeEmail(email)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.EndUser{}, err
	}

	now := time.Now().UTC()
	user := domain.EndUser{
		ID:           idx.New().String(),
		ProjectID:    project.ID,
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.EndUsers().CreateEndUser(ctx, user); err != nil {
			return err
		}
		defaultRole, err := tx.ProjectRoles().GetRoleByName(ctx, project.ID, domain.DefaultRoleUser)
		if err != nil {
			return err
		}
		return tx.EndUsers().AssignRole(ctx, user.ID, defaultRole.ID)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.EndUser{}, ErrEmailTaken
		}
		return domain.EndUser{}, err
	}

	slogx.FromContext(ctx).Info("end-user registered",
		slog.String("end_user_id", user.ID), slog.String("project_id", project.ID))
	s.sendVerificationMail(project, email)
	return user, nil
}

// VerifyEmail redeems a verification token for an end-user of the project.
// The token's apiKey claim must match the project it is being redeemed
// under, so verification links never cross tenants.
func (s *EndUserService) VerifyEmail(ctx context.Context, project domain.Project, token string) error {
	claims, err := s.Tokens.Codec.Parse(token)
	if err != nil {
		return ErrInvalidToken
	}
	if claims.PrimaryAudience() != domain.AudienceEmailVerification || claims.APIKey != project.APIKey {
		return ErrInvalidToken
	}
	if claims.Expired(time.Now().UTC()) {
		return ErrInvalidToken
	}

	user, err := s.Store.EndUsers().GetEndUserByEmail(ctx, project.ID, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	if user.EmailVerified {
		return nil // idempotent
	}
	return s.Store.EndUsers().MarkEmailVerified(ctx, user.ID)
}

// Login authenticates an end-user and mints a project-scoped login token.
func (s *EndUserService) Login(ctx context.Context, project domain.Project, email, password string) (string, time.Time, domain.EndUser, error) {
	email = normalizeEmail(email)

	user, err := s.Store.EndUsers().GetEndUserByEmail(ctx, project.ID, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", time.Time{}, domain.EndUser{}, ErrInvalidCredentials
		}
		return "", time.Time{}, domain.EndUser{}, err
	}

	if cryptox.VerifyPassword(password, user.PasswordHash) != nil {
		return "", time.Time{}, domain.EndUser{}, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return "", time.Time{}, domain.EndUser{}, ErrEmailNotVerified
	}
	if user.Locked {
		return "", time.Time{}, domain.EndUser{}, ErrAccountLocked
	}

	token, expiresAt, err := s.Tokens.IssueEndUserLogin(user, project.APIKey)
	if err != nil {
		return "", time.Time{}, domain.EndUser{}, err
	}

	slogx.FromContext(ctx).Info("end-user logged in",
		slog.String("end_user_id", user.ID), slog.String("project_id", project.ID))
	return token, expiresAt, user, nil
}

// ForgotPassword starts the OTP reset flow for an end-user. Unknown
// addresses still report success so the endpoint cannot probe which
// addresses exist; known but unverified addresses are refused outright.
func (s *EndUserService) ForgotPassword(ctx context.Context, project domain.Project, email string) error {
	email = normalizeEmail(email)

	user, err := s.Store.EndUsers().GetEndUserByEmail(ctx, project.ID, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Debug("password reset requested for unknown end-user email",
				slog.String("project_id", project.ID))
			return nil
		}
		return err
	}
	if !user.EmailVerified {
		return ErrEmailNotVerified
	}

	code, err := cryptox.GenerateResetCode()
	if err != nil {
		return err
	}
	s.OTP.Put(endUserOTPKey(project.APIKey, email), code)
	s.sendResetMail(email, code)
	return nil
}

// ResetPassword redeems an OTP code and sets the new password.
func (s *EndUserService) ResetPassword(ctx context.Context, project domain.Project, email, code, newPassword string) error {
	email = normalizeEmail(email)

	if !s.OTP.Consume(endUserOTPKey(project.APIKey, email), code) {
		return ErrInvalidOTP
	}

	user, err := s.Store.EndUsers().GetEndUserByEmail(ctx, project.ID, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOTP
		}
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("end-user password reset", slog.String("end_user_id", user.ID))
	return s.Store.EndUsers().UpdatePasswordHash(ctx, user.ID, hash)
}

// ChangePassword rotates the password of an authenticated end-user after
// re-checking the current one.
func (s *EndUserService) ChangePassword(ctx context.Context, projectID, endUserID, oldPassword, newPassword string) error {
	user, err := s.Store.EndUsers().GetEndUserByID(ctx, projectID, endUserID)
	if err != nil {
		return err
	}
	if cryptox.VerifyPassword(oldPassword, user.PasswordHash) != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("end-user password changed", slog.String("end_user_id", endUserID))
	return s.Store.EndUsers().UpdatePasswordHash(ctx, endUserID, hash)
}

// UpdateFullName mutates the display name of an end-user.
func (s *EndUserService) UpdateFullName(ctx context.Context, projectID, endUserID, fullName string) error {
	if _, err := s.Store.EndUsers().GetEndUserByID(ctx, projectID, endUserID); err != nil {
		return err
	}
	return s.Store.EndUsers().UpdateFullName(ctx, endUserID, strings.TrimSpace(fullName))
}

// TokenValidation is the answer handed to relying parties that ask whether a
// login token is good for their project.
type TokenValidation struct {
	Valid        bool
	Email        string
	Roles        []string
	MaxRoleLevel int
}

// ValidateToken evaluates an end-user login token on behalf of the project's
// backend. Any failure yields Valid=false; errors are reserved for
// infrastructure faults.
func (s *EndUserService) ValidateToken(ctx context.Context, project domain.Project, token string) (TokenValidation, error) {
	invalid := TokenValidation{}

	claims, err := s.Tokens.Codec.Parse(token)
	if err != nil {
		return invalid, nil
	}
	if claims.PrimaryAudience() != domain.EndUserAudience(project.ID) {
		return invalid, nil
	}

	user, err := s.Store.EndUsers().GetEndUserByEmail(ctx, project.ID, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalid, nil
		}
		return invalid, err
	}
	if user.Locked {
		return invalid, nil
	}
	if !tokenValidForPrincipal(claims, user.Email, user.PasswordChangedAt, time.Now().UTC()) {
		return invalid, nil
	}

	roles, err := s.Store.EndUsers().GetRoles(ctx, user.ID)
	if err != nil {
		return invalid, err
	}

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}

	return TokenValidation{
		Valid:        true,
		Email:        user.Email,
		Roles:        names,
		MaxRoleLevel: domain.MaxRoleLevel(roles),
	}, nil
}

// ListEndUsers returns a project's end-users, newest first.
func (s *EndUserService) ListEndUsers(ctx context.Context, projectID string) ([]domain.EndUser, error) {
	return s.Store.EndUsers().ListEndUsers(ctx, projectID)
}

// GetEndUser fetches an end-user scoped to the project.
func (s *EndUserService) GetEndUser(ctx context.Context, projectID, endUserID string) (domain.EndUser, error) {
	return s.Store.EndUsers().GetEndUserByID(ctx, projectID, endUserID)
}

// GetRoles returns an end-user's assigned roles.
func (s *EndUserService) GetRoles(ctx context.Context, projectID, endUserID string) ([]domain.ProjectRole, error) {
	if _, err := s.Store.EndUsers().GetEndUserByID(ctx, projectID, endUserID); err != nil {
		return nil, err
	}
	return s.Store.EndUsers().GetRoles(ctx, endUserID)
}

// SetLocked flips the lock flag on an end-user. Locked users cannot log in
// and their outstanding tokens stop authenticating immediately.
func (s *EndUserService) SetLocked(ctx context.Context, projectID, endUserID string, locked bool) error {
	if _, err := s.Store.EndUsers().GetEndUserByID(ctx, projectID, endUserID); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("end-user lock changed",
		slog.String("end_user_id", endUserID), slog.Bool("locked", locked))
	return s.Store.EndUsers().SetLocked(ctx, endUserID, locked)
}

// AssignRole grants a role to an end-user. The role must belong to the same
// project; ids from other tenants are rejected outright. Granting a role the
// user already holds is a no-op.
func (s *EndUserService) AssignRole(ctx context.Context, projectID, endUserID, roleID string) error {
	if _, err := s.Store.EndUsers().GetEndUserByID(ctx, projectID, endUserID); err != nil {
		return err
	}
	if _, err := s.Store.ProjectRoles().GetRoleByID(ctx, projectID, roleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCrossProjectRole
		}
		return err
	}

	err := s.Store.EndUsers().AssignRole(ctx, endUserID, roleID)
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil
	}
	return err
}

// RemoveRole revokes a role from an end-user. The user must always retain at
// least one role, so removing the last one is rejected.
func (s *EndUserService) RemoveRole(ctx context.Context, projectID, endUserID, roleID string) error {
	if _, err := s.Store.EndUsers().GetEndUserByID(ctx, projectID, endUserID); err != nil {
		return err
	}

	count, err := s.Store.EndUsers().CountRoles(ctx, endUserID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastRole
	}

	return s.Store.EndUsers().RemoveRole(ctx, endUserID, roleID)
}

// ReplaceRoles swaps an end-user's entire role set atomically. The new set
// must be non-empty and every role must belong to the project.
func (s *EndUserService) ReplaceRoles(ctx context.Context, projectID, endUserID string, roleIDs []string) error {
	if len(roleIDs) == 0 {
		return ErrLastRole
	}
	if _, err := s.Store.EndUsers().GetEndUserByID(ctx, projectID, endUserID); err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		seen := make(map[string]struct{}, len(roleIDs))
		for _, roleID := range roleIDs {
			if _, ok := seen[roleID]; ok {
				continue
			}
			seen[roleID] = struct{}{}

			if _, err := tx.ProjectRoles().GetRoleByID(ctx, projectID, roleID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return ErrCrossProjectRole
				}
				return err
			}
		}

		current, err := tx.EndUsers().GetRoles(ctx, endUserID)
		if err != nil {
			return err
		}
		for _, r := range current {
			if err := tx.EndUsers().RemoveRole(ctx, endUserID, r.ID); err != nil {
				return err
			}
		}
		for roleID := range seen {
			if err := tx.EndUsers().AssignRole(ctx, endUserID, roleID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *EndUserService) sendVerificationMail(project domain.Project, email string) {
	token, err := s.Tokens.IssueVerification(email, project.APIKey)
	if err != nil {
		return
	}

	link := s.BaseURL + "/v1/p/" + project.APIKey + "/auth/verify-email?token=" + token
	s.Mail.Dispatch(mailx.Message{
		To:      email,
		Subject: "Verify your email address",
		HTMLBody: fmt.Sprintf(
			`<p>Welcome to %s! Please confirm your email address by clicking the link below.</p>
<p><a href=%q>Verify email</a></p>
<p>The link expires in %d minutes.</p>`,
			project.Name, link, int(VerificationTTL.Minutes())),
	})
}

func (s *EndUserService) sendResetMail(email, code string) {
	s.Mail.Dispatch(mailx.Message{
		To:      email,
		Subject: "Your password reset code",
		HTMLBody: fmt.Sprintf(
			`<p>Your password reset code is:</p>
<p><strong>%s</strong></p>
<p>It expires in %d minutes. If you did not request this, you can ignore this email.</p>`,
			code, int(DefaultOTPTTL.Minutes())),
	})
}
