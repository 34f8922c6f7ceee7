package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserInactive      = errors.New("user account is deactivated")

	// Login failed for a reason the caller must not be able to tell apart:
	// unknown email and wrong password map to the same error
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Too many recent failures for this email or ip, attempt rejected
	// before the password was even compared
	ErrTooManyLoginAttempts = errors.New("too many login attempts")

	ErrAccessTokenExpired = errors.New("access token is expired")
	ErrAccessTokenInvalid = errors.New("access token is invalid")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	// An already revoked refresh token was presented again.
	// Treated as credential theft: every token of the owning user
	// has been revoked by the time the caller sees this error.
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")

	ErrResetTokenNotFound = errors.New("password reset token not found")
	ErrResetTokenUsed     = errors.New("password reset token is used")

	ErrVerificationTokenNotFound = errors.New("email verification token not found")
)
