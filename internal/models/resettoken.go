package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken is a single-use time-boxed credential.
// At most one unused unexpired row exists per user: issuing a new one
// removes any previous rows.
type PasswordResetToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time // nil if token not used
}

// EmailVerificationToken is issued at registration.
// Issuance is idempotent: while an unconsumed unexpired row exists no
// duplicate is created.
type EmailVerificationToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	VerifiedAt *time.Time // nil if token not consumed
}
