// Package tokenmanager issues and verifies the credential pair:
// a short lived stateless JWT access token and a long lived rotating
// refresh secret persisted by hash only.
package tokenmanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"clubhub/internal/apperrors"
	"clubhub/internal/models"
	"clubhub/internal/repository"
	"clubhub/internal/secrets"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultSigningMethod   = "HS256"
)

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"uid"`
	Role   string    `json:"role"`
	Email  string    `json:"email"`
}

// Token manager config with sensible defaults
type Config struct {
	// Secret key to sign access token
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type TokenManager struct {
	// Secret key to sign access token
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Access and refresh token lifetimes
	accessTTL  time.Duration
	refreshTTL time.Duration

	// Storage for the refresh token rows.
	// Rotation runs through storage.InTx so the conditional revoke and the
	// reissue commit as one unit
	storage repository.Storage
}

func New(cfg Config, storage repository.Storage) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		key:        cfg.SecretKey,
		alg:        jwt.GetSigningMethod(cfg.Alg),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		storage:    storage,
	}, nil
}

// GeneratePair issues a signed access token and a fresh refresh secret
// bound to the requesting ip and user agent.
// The returned refresh value is the only moment the raw secret exists
// outside memory: the row keeps its hash
func (m *TokenManager) GeneratePair(ctx context.Context, user models.User, ip string, userAgent string) (models.TokenPair, error) {
	return m.generatePair(ctx, m.storage, user, ip, userAgent)
}

func (m *TokenManager) generatePair(ctx context.Context, s repository.Storage, user models.User, ip string, userAgent string) (models.TokenPair, error) {
	var pair models.TokenPair
	now := time.Now().Truncate(time.Second)
	accessExpiresAt := now.Add(m.accessTTL)
	refreshExpiresAt := now.Add(m.refreshTTL)

	// Generate JWT access token decoded as string
	accessToken := jwt.NewWithClaims(
		m.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(accessExpiresAt),
			},
			UserID: user.ID,
			Role:   user.Role,
			Email:  user.Email,
		},
	)
	access, err := accessToken.SignedString([]byte(m.key))
	if err != nil {
		return pair, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	refresh, err := secrets.Generate()
	if err != nil {
		return pair, fmt.Errorf("error while generating refresh secret. Err: %w", err)
	}

	_, err = s.RefreshToken().Save(ctx, models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: secrets.Hash(refresh),
		CreatedAt: now,
		ExpiresAt: refreshExpiresAt,
		IPAddress: ip,
		UserAgent: userAgent,
	})
	if err != nil {
		return pair, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.TokenPair{
		Access:  models.IssuedToken{Value: access, ExpiresAt: accessExpiresAt},
		Refresh: models.IssuedToken{Value: refresh, ExpiresAt: refreshExpiresAt},
	}, nil
}

// Rotate exchanges the presented refresh secret for a new token pair.
//
// The old row is revoked with a single conditional update: the affected
// row count, not a read-then-write, decides the outcome. When the row was
// revoked already the presented secret has been used twice. Either a
// legitimate client retried after a network error or somebody holds a
// stolen copy, and the safe answer is the same: revoke every token of the
// owning user and report apperrors.ErrTokenReuseDetected.
//
// The revoke and reissue commit as one transaction, so of two concurrent
// calls with the same secret exactly one returns a new pair.
// A returned pair means the commit is confirmed: there is no state where
// the secret rotated but the caller got an ambiguous result.
//
// The theft cascade can not run inside that transaction: returning the
// reuse sentinel rolls the transaction back, which would undo the
// revocations with it. Reuse is only detected inside, the cascade runs
// as its own committed unit after.
func (m *TokenManager) Rotate(ctx context.Context, refresh string, ip string, userAgent string) (models.TokenPair, error) {
	var pair models.TokenPair
	hash := secrets.Hash(refresh)

	var reusedBy uuid.UUID
	err := m.storage.InTx(ctx, func(s repository.Storage) error {
		revoked, err := s.RefreshToken().RevokeActive(ctx, hash, time.Now())

		switch {
		case errors.Is(err, apperrors.ErrRefreshTokenNotFound):
			old, getErr := s.RefreshToken().GetByHash(ctx, hash)
			if getErr != nil {
				// Never issued: plain unknown token, nothing to cascade
				return getErr
			}

			// Revoked already: the secret was used twice
			reusedBy = old.UserID
			return apperrors.ErrTokenReuseDetected
		case err != nil:
			return err
		}

		if revoked.ExpiresAt.Before(time.Now()) {
			return apperrors.ErrRefreshTokenExpired
		}

		user, err := s.User().GetUserByID(ctx, revoked.UserID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return apperrors.ErrUserInactive
		}

		pair, err = m.generatePair(ctx, s, user, ip, userAgent)
		return err
	})
	if errors.Is(err, apperrors.ErrTokenReuseDetected) {
		if _, revokeErr := m.storage.RefreshToken().RevokeAllForUser(ctx, reusedBy); revokeErr != nil {
			return models.TokenPair{}, fmt.Errorf("error while revoking sessions after token reuse. Err: %w", revokeErr)
		}
	}
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("error while rotating refresh token. Err: %w", err)
	}

	return pair, nil
}

// Parse and validate access token.
// Expiry is reported distinctly, any other verification failure collapses
// into apperrors.ErrAccessTokenInvalid
func (m *TokenManager) ParseAccess(ctx context.Context, access string) (AccessTokenClaims, error) {
	claims := AccessTokenClaims{}

	_, err := jwt.ParseWithClaims(
		access,
		&claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)

	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return AccessTokenClaims{}, apperrors.ErrAccessTokenExpired
	default:
		return AccessTokenClaims{}, fmt.Errorf("%w: %w", apperrors.ErrAccessTokenInvalid, err)
	}
}
