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

// OwnerService handles platform account lifecycle: registration, email
// verification, login, password management and the admin operations.
type OwnerService struct {
	Store  store.Store
	Tokens *TokenService
	Mail   *mailx.Dispatcher
	OTP    *OTPStore

	// BaseURL is the public URL of this service, used in verification links.
	BaseURL string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ownerOTPKey(email string) string { return "owner:" + email }

// Register creates a new owner account and dispatches the verification mail.
// The account starts unverified and cannot log in until verified.
func (s *OwnerService) Register(ctx context.Context, email, fullName, password string) (domain.Owner, error) {
	email = normalizeEmail(email)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Owner{}, err
	}

	now := time.Now().UTC()
	owner := domain.Owner{
		ID:           idx.New().String(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		Role:         domain.OwnerRoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Owners().CreateOwner(ctx, owner); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Owner{}, ErrEmailTaken
		}
		return domain.Owner{}, err
	}

	slogx.FromContext(ctx).Info("owner registered", slog.String("owner_id", owner.ID))
	s.sendVerificationMail(email, "")
	return owner, nil
}

// VerifyEmail redeems a verification token for an owner account.
func (s *OwnerService) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.Tokens.Codec.Parse(token)
	if err != nil {
		return ErrInvalidToken
	}
	// Owner verification tokens carry no apiKey claim; one with a key
	// belongs to a tenant flow and must not verify a platform account.
	if claims.PrimaryAudience() != domain.AudienceEmailVerification || claims.APIKey != "" {
		return ErrInvalidToken
	}
	if claims.Expired(time.Now().UTC()) {
		return ErrInvalidToken
	}

	owner, err := s.Store.Owners().GetOwnerByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	if owner.EmailVerified {
		return nil // idempotent
	}
	return s.Store.Owners().MarkEmailVerified(ctx, owner.ID)
}

// Login authenticates an owner by email and password and mints a login
// token. Unverified and locked accounts are rejected before any token is
// issued.
func (s *OwnerService) Login(ctx context.Context, email, password string) (string, time.Time, domain.Owner, error) {
	email = normalizeEmail(email)

	owner, err := s.Store.Owners().GetOwnerByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", time.Time{}, domain.Owner{}, ErrInvalidCredentials
		}
		return "", time.Time{}, domain.Owner{}, err
	}

	if cryptox.VerifyPassword(password, owner.PasswordHash) != nil {
		return "", time.Time{}, domain.Owner{}, ErrInvalidCredentials
	}
	if !owner.EmailVerified {
		return "", time.Time{}, domain.Owner{}, ErrEmailNotVerified
	}
	if owner.Locked {
		return "", time.Time{}, domain.Owner{}, ErrAccountLocked
	}

	token, expiresAt, err := s.Tokens.IssueOwnerLogin(owner)
	if err != nil {
		return "", time.Time{}, domain.Owner{}, err
	}

	slogx.FromContext(ctx).Info("owner logged in", slog.String("owner_id", owner.ID))
	return token, expiresAt, owner, nil
}

// ForgotPassword starts the OTP reset flow. Unknown addresses still report
// success so the endpoint cannot be used to probe which addresses exist;
// known but unverified addresses are refused outright.
func (s *OwnerService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	l := slogx.FromContext(ctx)

	owner, err := s.Store.Owners().GetOwnerByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Debug("password reset requested for unknown owner email")
			return nil
		}
		return err
	}
	if !owner.EmailVerified {
		return ErrEmailNotVerified
	}

	code, err := cryptox.GenerateResetCode()
	if err != nil {
		return err
	}
	s.OTP.Put(ownerOTPKey(email), code)
	s.sendResetMail(email, code)
	return nil
}

// ResetPassword redeems an OTP code and sets the new password. The stamped
// password change time invalidates every previously issued login token.
func (s *OwnerService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)

	if !s.OTP.Consume(ownerOTPKey(email), code) {
		return ErrInvalidOTP
	}

	owner, err := s.Store.Owners().GetOwnerByEmail(ctx, email)
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

	slogx.FromContext(ctx).Info("owner password reset", slog.String("owner_id", owner.ID))
	return s.Store.Owners().UpdatePasswordHash(ctx, owner.ID, hash)
}

// ChangePassword rotates the password of an authenticated owner after
// re-checking the current one.
func (s *OwnerService) ChangePassword(ctx context.Context, ownerID, oldPassword, newPassword string) error {
	owner, err := s.Store.Owners().GetOwnerByID(ctx, ownerID)
	if err != nil {
		return err
	}
	if cryptox.VerifyPassword(oldPassword, owner.PasswordHash) != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("owner password changed", slog.String("owner_id", ownerID))
	return s.Store.Owners().UpdatePasswordHash(ctx, ownerID, hash)
}

// GetOwnerByID fetches an owner by id.
func (s *OwnerService) GetOwnerByID(ctx context.Context, ownerID string) (domain.Owner, error) {
	return s.Store.Owners().GetOwnerByID(ctx, ownerID)
}

// UpdateFullName mutates the display name of an owner.
func (s *OwnerService) UpdateFullName(ctx context.Context, ownerID, fullName string) error {
	return s.Store.Owners().UpdateFullName(ctx, ownerID, strings.TrimSpace(fullName))
}

// ListOwners returns every platform account. Admin only; the handler gates it.
func (s *OwnerService) ListOwners(ctx context.Context) ([]domain.Owner, error) {
	return s.Store.Owners().ListOwners(ctx)
}

// SetOwnerLocked flips the lock flag on an account. Locked owners cannot log
// in and their outstanding tokens stop authenticating immediately.
func (s *OwnerService) SetOwnerLocked(ctx context.Context, ownerID string, locked bool) error {
	slogx.FromContext(ctx).Info("owner lock changed",
		slog.String("owner_id", ownerID), slog.Bool("locked", locked))
	return s.Store.Owners().SetLocked(ctx, ownerID, locked)
}

// SetOwnerRole changes the platform role of an account.
func (s *OwnerService) SetOwnerRole(ctx context.Context, ownerID string, role domain.OwnerRole) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRoleName, role)
	}
	return s.Store.Owners().SetRole(ctx, ownerID, role)
}

func (s *OwnerService) sendVerificationMail(email, apiKey string) {
	token, err := s.Tokens.IssueVerification(email, apiKey)
	if err != nil {
		return
	}

	link := s.BaseURL + "/v1/platform/auth/verify-email?token=" + token
	s.Mail.Dispatch(mailx.Message{
		To:      email,
		Subject: "Verify your email address",
		HTMLBody: fmt.Sprintf(
			`<p>Welcome! Please confirm your email address by clicking the link below.</p>
<p><a href=%q>Verify email</a></p>
<p>The link expires in %d minutes.</p>`,
			link, int(VerificationTTL.Minutes())),
	})
}

func (s *OwnerService) sendResetMail(email, code string) {
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
