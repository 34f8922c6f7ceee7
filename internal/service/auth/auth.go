package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"clubhub/internal/apperrors"
	"clubhub/internal/logger"
	"clubhub/internal/models"
	"clubhub/internal/repository"
	"clubhub/internal/secrets"
	"clubhub/internal/service/auth/tokenmanager"
)

// Single-sourced lifecycle constants.
// Deliberately not part of the runtime config: they match the reference
// deployment and live here so no magic number is scattered around.
const (
	PasswordResetTokenTTL     = 1 * time.Hour
	EmailVerificationTokenTTL = 24 * time.Hour

	LoginFailureLimit  = 5
	LoginFailureWindow = 15 * time.Minute
)

// Hash of a value nobody can present. Compared against when the email is
// unknown so failed logins cost the same either way
var timingEqualizerHash = mustHash("\x00never-a-password")

func mustHash(password string) string {
	hash, err := DefaultHasher.Hash(password)
	if err != nil {
		panic(fmt.Sprintf("hashing the timing equalizer: %v", err))
	}
	return hash
}

const (
	defaultAccessHeaderName  = "Authorization"
	defaultAccessAuthScheme  = "Bearer"
	defaultRefreshCookieName = "refresh_token"
)

type Config struct {
	// Hasher for user passwords. BcryptHasher if not set
	Hasher PasswordHasher

	// Notifier to hand raw reset/verification secrets to. LogNotifier if not set
	Notifier Notifier

	// Logger. No-op if not set
	Logger logger.Logger
}

// AuthService owns the credential and session lifecycle: login gating,
// token pair issuance and rotation, password reset and email verification
type AuthService struct {
	// Manager to issue, rotate and verify token pairs
	token *tokenmanager.TokenManager

	// hasher to hash or compare user passwords
	hasher PasswordHasher

	// notifier for out-of-band secret delivery
	notifier Notifier

	logger logger.Logger

	// Storage for users, token tables and the attempt ledger
	storage repository.Storage

	accessHeaderName  string
	accessAuthScheme  string
	refreshCookieName string
}

func NewService(cfg Config, token *tokenmanager.TokenManager, storage repository.Storage) (*AuthService, error) {
	if token == nil || storage == nil {
		return nil, errors.New("token manager and storage must not be nil")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOp()
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: log}
	}

	return &AuthService{
		token:             token,
		hasher:            hasher,
		notifier:          notifier,
		logger:            log,
		storage:           storage,
		accessHeaderName:  defaultAccessHeaderName,
		accessAuthScheme:  defaultAccessAuthScheme,
		refreshCookieName: defaultRefreshCookieName,
	}, nil
}

// Register creates a member account, issues its email verification token
// and returns the first token pair
func (s *AuthService) Register(ctx context.Context, email string, password string, ip string, userAgent string) (models.TokenPair, error) {
	var pair models.TokenPair

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return pair, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	var user models.User
	var verifyRaw string
	err = s.storage.InTx(ctx, func(txs repository.Storage) error {
		user, err = txs.User().CreateUser(ctx, repository.CreateUserParams{
			Email:          email,
			Role:           models.RoleMember,
			HashedPassword: hash,
		})
		if err != nil {
			return err
		}

		verifyRaw, _, err = issueVerificationToken(ctx, txs, user.ID)
		return err
	})
	if err != nil {
		return pair, err
	}

	if verifyRaw != "" {
		s.notifier.EmailVerificationRequested(ctx, user, verifyRaw)
	}

	pair, err = s.token.GeneratePair(ctx, user, ip, userAgent)
	if err != nil {
		return pair, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return pair, nil
}

// Login authenticates the user and mints a token pair.
//
// The attempt ledger gates the whole flow: when the trailing window holds
// LoginFailureLimit or more failures for this email or ip the attempt is
// rejected before the password is even compared.
// Every attempt that reaches password comparison is recorded.
func (s *AuthService) Login(ctx context.Context, email string, password string, ip string, userAgent string) (models.TokenPair, error) {
	var pair models.TokenPair

	failures, err := s.RecentFailureCount(ctx, email, ip, LoginFailureWindow)
	if err != nil {
		return pair, err
	}
	if failures >= LoginFailureLimit {
		return pair, apperrors.ErrTooManyLoginAttempts
	}

	user, getErr := s.storage.User().GetUserByEmail(ctx, email)
	if getErr != nil && !errors.Is(getErr, apperrors.ErrUserNotFound) {
		return pair, getErr
	}

	// Compare against a real hash even for unknown emails so response
	// timing does not reveal whether the account exists
	hash := user.HashedPassword
	if getErr != nil {
		hash = timingEqualizerHash
	}
	compareErr := s.hasher.Compare(hash, password)
	passwordOK := getErr == nil && compareErr == nil

	if err := s.recordAttempt(ctx, email, ip, userAgent, passwordOK); err != nil {
		return pair, err
	}

	if !passwordOK {
		return pair, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return pair, apperrors.ErrUserInactive
	}

	pair, err = s.token.GeneratePair(ctx, user, ip, userAgent)
	if err != nil {
		return pair, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return pair, nil
}

// RefreshPair rotates the presented refresh secret for a new pair.
// apperrors.ErrTokenReuseDetected means the cascade already fired and the
// caller should force a full re-login
func (s *AuthService) RefreshPair(ctx context.Context, refresh string, ip string, userAgent string) (models.TokenPair, error) {
	return s.token.Rotate(ctx, refresh, ip, userAgent)
}

// LookupSession returns the refresh token row joined with its owner,
// regardless of revocation or expiry state
func (s *AuthService) LookupSession(ctx context.Context, refresh string) (models.RefreshToken, models.User, error) {
	return s.storage.RefreshToken().GetByHashWithUser(ctx, secrets.Hash(refresh))
}

// Logout revokes every refresh token of the user
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	revoked, err := s.storage.RefreshToken().RevokeAllForUser(ctx, userID)
	if err != nil {
		return err
	}

	s.logger.Info("user logged out", "user_id", userID, "sessions_revoked", revoked)
	return nil
}

// GetUserFromRequest authenticates the request by its access token
func (s *AuthService) GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error) {
	var user models.User

	header := r.Header.Get(s.accessHeaderName)
	access, found := strings.CutPrefix(header, s.accessAuthScheme+" ")
	if !found || access == "" {
		return user, apperrors.ErrAccessTokenInvalid
	}

	claims, err := s.token.ParseAccess(ctx, access)
	if err != nil {
		return user, err
	}

	user, err = s.storage.User().GetUserByID(ctx, claims.UserID)
	if err != nil {
		return user, err
	}
	if !user.IsActive {
		return user, apperrors.ErrUserInactive
	}

	return user, nil
}

// SetTokenPairToResponse writes the access token to the auth header and
// the refresh secret to an httpOnly cookie
func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	w.Header().Set(s.accessHeaderName, s.accessAuthScheme+" "+pair.Access.Value)
	http.SetCookie(w, s.refreshCookie(pair.Refresh))
}

// SetTokenPairToRequest mirrors SetTokenPairToResponse for outgoing
// requests. Useful in tests
func (s *AuthService) SetTokenPairToRequest(r *http.Request, pair models.TokenPair) {
	r.Header.Set(s.accessHeaderName, s.accessAuthScheme+" "+pair.Access.Value)
	r.AddCookie(s.refreshCookie(pair.Refresh))
}

// GetRefreshString extracts the refresh secret from the request cookie
func (s *AuthService) GetRefreshString(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.refreshCookieName)
	if err != nil {
		return "", apperrors.ErrRefreshTokenNotFound
	}

	return cookie.Value, nil
}

func (s *AuthService) refreshCookie(refresh models.IssuedToken) *http.Cookie {
	return &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    refresh.Value,
		Path:     "/",
		Expires:  refresh.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
