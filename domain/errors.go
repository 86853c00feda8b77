package domain

import (
	"errors"
	"strings"
)

// Authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrAccountLocked      = errors.New("account locked")
	ErrWeakPassword       = errors.New("password does not meet requirements")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrValidation         = errors.New("validation failed")
)

// MFA errors
var (
	ErrMFANotSetUp       = errors.New("mfa is not set up")
	ErrMFAAlreadyEnabled = errors.New("mfa is already enabled")
	ErrMFANotEnabled     = errors.New("mfa is not enabled")
	ErrInvalidMFACode    = errors.New("invalid mfa code")
	ErrMFAConflict       = errors.New("mfa settings were modified concurrently")
)

// Token errors
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("malformed token")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
	ErrSessionRevoked  = errors.New("session has been revoked")
)

// Authorization errors
var (
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrInsufficientRole = errors.New("insufficient role permissions")
	ErrResourceNotFound = errors.New("resource not found")
	ErrRateLimited      = errors.New("too many requests")
)

// Encryption errors
var (
	ErrPurposeMismatch = errors.New("encryption purpose mismatch")
	ErrDecryption      = errors.New("decryption failed")
)

// WeakPasswordError lists every rule a candidate password violates
type WeakPasswordError struct {
	Reasons []string
}

func (e *WeakPasswordError) Error() string {
	return ErrWeakPassword.Error() + ": " + strings.Join(e.Reasons, "; ")
}

// Is makes errors.Is(err, ErrWeakPassword) hold
func (e *WeakPasswordError) Is(target error) bool {
	return target == ErrWeakPassword
}
