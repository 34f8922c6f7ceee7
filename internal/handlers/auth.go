package handlers

import (
	"errors"
	"net"
	"net/http"

	"github.com/google/uuid"

	"clubhub/internal/apperrors"
	"clubhub/internal/handlers/render"
	"clubhub/internal/handlers/userctx"
	"clubhub/internal/logger"
)

type messageResponse struct {
	Message string `json:"message"`
}

// remoteIP returns the peer address without the port
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func handleRegister(s authService, log logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8,max=72"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := s.Register(r.Context(), data.Email, data.Password, remoteIP(r), r.UserAgent())
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserAlreadyExists):
				render.ServiceError(w, "User already exists", http.StatusConflict)
			default:
				log.Error("register failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		s.SetTokenPairToResponse(w, pair)
		render.JSONWithStatus(w, messageResponse{Message: "User registered successfully"}, http.StatusCreated)
	})
}

func handleLogin(s authService, log logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := s.Login(r.Context(), data.Email, data.Password, remoteIP(r), r.UserAgent())
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrTooManyLoginAttempts):
				render.ServiceError(w, "Too many login attempts, try again later", http.StatusTooManyRequests)
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				render.ServiceError(w, "Invalid email or password", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrUserInactive):
				render.ServiceError(w, "Account is deactivated", http.StatusForbidden)
			default:
				log.Error("login failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		s.SetTokenPairToResponse(w, pair)
		render.JSON(w, messageResponse{Message: "User logged in successfully"})
	})
}

func handleRefresh(s authService, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := s.GetRefreshString(r)
		if err != nil {
			render.ServiceError(w, "Session expired, please log in again", http.StatusUnauthorized)
			return
		}

		pair, err := s.RefreshPair(r.Context(), refresh, remoteIP(r), r.UserAgent())
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrTokenReuseDetected):
				// The cascade already revoked the whole session family.
				// The user sees the same generic message as any stale token
				log.Warn("refresh token reuse detected", "ip", remoteIP(r))
				render.ServiceError(w, "Session expired, please log in again", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrRefreshTokenNotFound),
				errors.Is(err, apperrors.ErrRefreshTokenExpired),
				errors.Is(err, apperrors.ErrUserInactive):
				render.ServiceError(w, "Session expired, please log in again", http.StatusUnauthorized)
			default:
				log.Error("refresh failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		s.SetTokenPairToResponse(w, pair)
		render.JSON(w, messageResponse{Message: "Tokens refreshed successfully"})
	})
}

func handleLogout(s authService, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())

		if err := s.Logout(r.Context(), user.ID); err != nil {
			log.Error("logout failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, messageResponse{Message: "Logged out"})
	})
}

func handlePasswordResetRequest(s authService, log logger.Logger) http.Handler {
	type request struct {
		Email string `json:"email" validate:"required,email"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		_, err = s.RequestPasswordReset(r.Context(), data.Email)
		if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
			log.Error("password reset request failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		// Unknown emails get the same answer: no account existence oracle here
		render.JSONWithStatus(w, messageResponse{Message: "If the account exists, a reset link is on its way"}, http.StatusAccepted)
	})
}

func handlePasswordResetConfirm(s authService, log logger.Logger) http.Handler {
	type request struct {
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required,min=8,max=72"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = s.ResetPassword(r.Context(), data.Token, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrResetTokenNotFound):
				render.ServiceError(w, "Invalid or expired link", http.StatusBadRequest)
			default:
				log.Error("password reset failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, messageResponse{Message: "Password changed successfully"})
	})
}

func handleVerifyEmail(s authService, log logger.Logger) http.Handler {
	type request struct {
		Token string `json:"token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = s.ConfirmEmail(r.Context(), data.Token)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrVerificationTokenNotFound):
				render.ServiceError(w, "Invalid or expired link", http.StatusBadRequest)
			default:
				log.Error("email verification failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, messageResponse{Message: "Email verified successfully"})
	})
}

func handleUserMe() http.Handler {
	type response struct {
		ID              uuid.UUID `json:"id"`
		Email           string    `json:"email"`
		Role            string    `json:"role"`
		IsEmailVerified bool      `json:"is_email_verified"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())
		render.JSON(w, response{
			ID:              user.ID,
			Email:           user.Email,
			Role:            user.Role,
			IsEmailVerified: user.IsEmailVerified,
		})
	})
}
