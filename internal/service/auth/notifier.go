package auth

import (
	"context"

	"clubhub/internal/logger"
	"clubhub/internal/models"
)

// Notifier delivers raw one-time secrets to the user out-of-band.
// Calls are fire-and-forget: delivery failures never fail the request
// that produced the secret.
type Notifier interface {
	PasswordResetRequested(ctx context.Context, user models.User, rawToken string)
	EmailVerificationRequested(ctx context.Context, user models.User, rawToken string)
}

// LogNotifier is the default stand-in for the real mailer.
// It records that a delivery would happen. The raw secret itself is
// never written to the log.
type LogNotifier struct {
	Logger logger.Logger
}

func (n LogNotifier) PasswordResetRequested(ctx context.Context, user models.User, rawToken string) {
	n.Logger.Info("password reset requested", "user_id", user.ID, "email", user.Email)
}

func (n LogNotifier) EmailVerificationRequested(ctx context.Context, user models.User, rawToken string) {
	n.Logger.Info("email verification requested", "user_id", user.ID, "email", user.Email)
}
