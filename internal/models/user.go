package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles known to the system
const (
	RoleMember  = "member"
	RoleTrainer = "trainer"
	RoleAdmin   = "admin"
)

type User struct {
	ID              uuid.UUID
	CreatedAt       time.Time
	Email           string
	Role            string
	HashedPassword  string
	IsActive        bool
	IsEmailVerified bool
}
