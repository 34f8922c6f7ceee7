package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the persisted half of a long-lived session.
// Only the SHA-256 digest of the opaque secret is stored, never the secret itself.
// IsRevoked transitions false -> true exactly once and never reverts.
type RefreshToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUsedAt *time.Time // nil until the token is rotated
	IsRevoked  bool
	IPAddress  string
	UserAgent  string
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair returned to the user on authentication or refresh
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
