package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clubhub/internal/models"
)

// Storage aggregates every repository of the credential subsystem.
// InTx runs the unit of work in one database transaction: commit on nil,
// rollback otherwise. The Storage passed to fn is scoped to that transaction.
type Storage interface {
	User() UserRepo
	RefreshToken() RefreshTokenRepo
	PasswordReset() PasswordResetRepo
	EmailVerification() EmailVerificationRepo
	LoginAttempt() LoginAttemptRepo

	InTx(ctx context.Context, fn func(Storage) error) error
}

type CreateUserParams struct {
	Email          string
	Role           string
	HashedPassword string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with email exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by it's id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Replace user's password hash
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error

	// Flip is_email_verified flag. Idempotent
	MarkEmailVerified(ctx context.Context, userID uuid.UUID) error
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Persist a new token row. The row carries the hash only, never the raw secret
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Return the token by it's hash even if it is revoked or expired.
	// If no row exists must return apperrors.ErrRefreshTokenNotFound
	GetByHash(ctx context.Context, tokenHash string) (models.RefreshToken, error)

	// Return the token joined with the owning user so the caller may apply
	// account status checks without a second round trip
	GetByHashWithUser(ctx context.Context, tokenHash string) (models.RefreshToken, models.User, error)

	// Revoke the token only if it is currently not revoked: a single
	// conditional update whose affected row count is the rotation decision
	// signal. Zero affected rows must return apperrors.ErrRefreshTokenNotFound
	// so the caller can tell "never rotated" from "rotated already" with GetByHash.
	RevokeActive(ctx context.Context, tokenHash string, usedAt time.Time) (models.RefreshToken, error)

	// Revoke every non revoked token of the user, return how many were revoked
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// Count non revoked unexpired tokens of the user
	CountActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
}

// PasswordReset repository interface
type PasswordResetRepo interface {
	// Remove any previous reset rows of the user and insert the new one,
	// keeping the at-most-one-active invariant
	Replace(ctx context.Context, token models.PasswordResetToken) (models.PasswordResetToken, error)

	// Return an unused unexpired token by hash.
	// Expired, used or missing rows must all return apperrors.ErrResetTokenNotFound
	GetValidByHash(ctx context.Context, tokenHash string, now time.Time) (models.PasswordResetToken, error)

	// Set used_at exactly once. A second call must return apperrors.ErrResetTokenUsed
	// and keep the original timestamp
	MarkUsed(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) error
}

// EmailVerification repository interface
type EmailVerificationRepo interface {
	// Insert the token unless an unconsumed unexpired row already exists
	// for the user. Returns false without error when the insert was a no-op
	CreateIfAbsent(ctx context.Context, token models.EmailVerificationToken) (bool, error)

	// Return an unconsumed unexpired token by hash.
	// Anything else must return apperrors.ErrVerificationTokenNotFound
	GetValidByHash(ctx context.Context, tokenHash string, now time.Time) (models.EmailVerificationToken, error)

	// Set verified_at exactly once
	MarkVerified(ctx context.Context, tokenID uuid.UUID, verifiedAt time.Time) error
}

// LoginAttempt repository interface
type LoginAttemptRepo interface {
	// Append one immutable ledger row
	Record(ctx context.Context, attempt models.LoginAttempt) error

	// Count failed attempts after 'since' that match the email OR the ip.
	// Union on purpose: one credential tried from many addresses and many
	// credentials tried from one address both have to count
	CountRecentFailures(ctx context.Context, email string, ip string, since time.Time) (int64, error)
}
