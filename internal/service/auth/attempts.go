package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clubhub/internal/models"
)

// RecentFailureCount returns the number of failed login attempts inside
// the trailing window that match the email or the ip
func (s *AuthService) RecentFailureCount(ctx context.Context, email string, ip string, window time.Duration) (int64, error) {
	since := time.Now().Add(-window)
	return s.storage.LoginAttempt().CountRecentFailures(ctx, email, ip, since)
}

// recordAttempt appends one row to the immutable attempt ledger
func (s *AuthService) recordAttempt(ctx context.Context, email string, ip string, userAgent string, success bool) error {
	return s.storage.LoginAttempt().Record(ctx, models.LoginAttempt{
		ID:          uuid.New(),
		Email:       email,
		IPAddress:   ip,
		UserAgent:   userAgent,
		Success:     success,
		AttemptedAt: time.Now(),
	})
}
