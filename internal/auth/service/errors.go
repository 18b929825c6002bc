package service

import "errors"

// Service-level sentinels. Handlers map these onto HTTP status codes; the
// wording doubles as the wire-level error code.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailTaken         = errors.New("email_taken")
	ErrEmailNotVerified   = errors.New("email_not_verified")
	ErrAccountLocked      = errors.New("account_locked")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrInvalidOTP         = errors.New("invalid_otp")
	ErrAccessDenied       = errors.New("access_denied")
	ErrCrossProjectRole   = errors.New("cross_project_role")
	ErrLastRole           = errors.New("last_role")
	ErrProtectedRole      = errors.New("protected_role")
	ErrRoleInUse          = errors.New("role_in_use")
	ErrInvalidRoleName    = errors.New("invalid_role_name")
)
