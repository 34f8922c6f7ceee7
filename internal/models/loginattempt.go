package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginAttempt is one row of the append-only authentication ledger.
// Rows are never mutated or deleted, only counted in aggregate.
type LoginAttempt struct {
	ID          uuid.UUID
	Email       string
	IPAddress   string
	UserAgent   string
	Success     bool
	AttemptedAt time.Time
}
