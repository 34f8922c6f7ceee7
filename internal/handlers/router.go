package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"clubhub/internal/handlers/middleware"
	"clubhub/internal/logger"
	"clubhub/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(authService authService, logger logger.Logger) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	apiauth := http.NewServeMux()

	apiauth.Handle("POST /register", handleRegister(authService, logger))
	apiauth.Handle("POST /login", handleLogin(authService, logger))
	apiauth.Handle("POST /refresh", handleRefresh(authService, logger))
	apiauth.Handle("POST /logout", withAuth(handleLogout(authService, logger)))
	apiauth.Handle("POST /password-reset/request", handlePasswordResetRequest(authService, logger))
	apiauth.Handle("POST /password-reset/confirm", handlePasswordResetConfirm(authService, logger))
	apiauth.Handle("POST /verify-email", handleVerifyEmail(authService, logger))
	apiauth.Handle("GET /me", withAuth(handleUserMe()))

	root := http.NewServeMux()
	root.Handle("/api/auth/", http.StripPrefix("/api/auth", apiauth))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user with email and password
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	Register(ctx context.Context, email string, password string, ip string, userAgent string) (models.TokenPair, error)

	// Login user with email and password.
	// Wrong password and unknown email both map to apperrors.ErrInvalidCredentials,
	// a throttled attempt to apperrors.ErrTooManyLoginAttempts
	Login(ctx context.Context, email string, password string, ip string, userAgent string) (models.TokenPair, error)

	// Rotate the refresh secret for a new pair.
	// All failure kinds except reuse detection surface to the user the same way
	RefreshPair(ctx context.Context, refresh string, ip string, userAgent string) (models.TokenPair, error)

	// Revoke every refresh token of the user
	Logout(ctx context.Context, userID uuid.UUID) error

	// Password reset and email verification flows
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, raw string, newPassword string) error
	ConfirmEmail(ctx context.Context, raw string) error

	// HTTP glue
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)
	GetRefreshString(r *http.Request) (string, error)
	GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error)
}
