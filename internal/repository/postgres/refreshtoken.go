package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"clubhub/internal/apperrors"
	"clubhub/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveRefreshToken
INSERT INTO refresh_tokens (id, user_id, token_hash, created_at, expires_at, last_used_at, is_revoked, ip_address, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, user_id, token_hash, created_at, expires_at, last_used_at, is_revoked, ip_address, user_agent
`

func (r *RefreshTokenRepo) Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, saveToken,
		token.ID, token.UserID, token.TokenHash,
		token.CreatedAt, token.ExpiresAt, token.LastUsedAt,
		token.IsRevoked, token.IPAddress, token.UserAgent,
	)
	saved, err := pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}

	return saved, nil
}

const getTokenByHash = `-- name: GetRefreshTokenByHash
SELECT id, user_id, token_hash, created_at, expires_at, last_used_at, is_revoked, ip_address, user_agent
FROM refresh_tokens
WHERE token_hash = $1
`

// Get token by the hash of it's secret
// Returns the row even if it is revoked or expired: the caller decides what that means
func (r *RefreshTokenRepo) GetByHash(ctx context.Context, tokenHash string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getTokenByHash, tokenHash)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, apperrors.ErrRefreshTokenNotFound
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const getTokenByHashWithUser = `-- name: GetRefreshTokenByHashWithUser
SELECT t.id, t.user_id, t.token_hash, t.created_at, t.expires_at, t.last_used_at, t.is_revoked, t.ip_address, t.user_agent,
       u.id, u.created_at, u.email, u.role, u.password_hash, u.is_active, u.is_email_verified
FROM refresh_tokens t
JOIN users u ON u.id = t.user_id
WHERE t.token_hash = $1
`

// Get token joined with it's owner in a single round trip
func (r *RefreshTokenRepo) GetByHashWithUser(ctx context.Context, tokenHash string) (models.RefreshToken, models.User, error) {
	type tokenWithUser struct {
		token models.RefreshToken
		user  models.User
	}

	rows, _ := r.DB.Query(ctx, getTokenByHashWithUser, tokenHash)
	got, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (tokenWithUser, error) {
		var tu tokenWithUser
		err := row.Scan(
			&tu.token.ID, &tu.token.UserID, &tu.token.TokenHash,
			&tu.token.CreatedAt, &tu.token.ExpiresAt, &tu.token.LastUsedAt,
			&tu.token.IsRevoked, &tu.token.IPAddress, &tu.token.UserAgent,
			&tu.user.ID, &tu.user.CreatedAt, &tu.user.Email, &tu.user.Role,
			&tu.user.HashedPassword, &tu.user.IsActive, &tu.user.IsEmailVerified,
		)
		return tu, err
	})

	switch {
	case err == nil:
		return got.token, got.user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return got.token, got.user, apperrors.ErrRefreshTokenNotFound
	default:
		return got.token, got.user, fmt.Errorf("db error: %w", err)
	}
}

const revokeActiveToken = `-- name: RevokeActiveToken
UPDATE refresh_tokens
SET is_revoked = TRUE, last_used_at = $2
WHERE token_hash = $1 AND NOT is_revoked
RETURNING id, user_id, token_hash, created_at, expires_at, last_used_at, is_revoked, ip_address, user_agent
`

// Revoke the token only if it is currently active.
// The conditional update is the whole point: under two concurrent rotation
// attempts exactly one claims the row, the other sees zero affected rows.
// Zero rows (revoked already or never existed) comes back as ErrRefreshTokenNotFound.
func (r *RefreshTokenRepo) RevokeActive(ctx context.Context, tokenHash string, usedAt time.Time) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, revokeActiveToken, tokenHash, usedAt)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, apperrors.ErrRefreshTokenNotFound
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const revokeAllForUser = `-- name: RevokeAllForUser
UPDATE refresh_tokens
SET is_revoked = TRUE
WHERE user_id = $1 AND NOT is_revoked
`

// Revoke every active token of the user: logout and theft cascade
func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.DB.Exec(ctx, revokeAllForUser, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

const countActiveForUser = `-- name: CountActiveForUser
SELECT count(*)
FROM refresh_tokens
WHERE user_id = $1 AND NOT is_revoked AND expires_at > $2
`

func (r *RefreshTokenRepo) CountActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	rows, _ := r.DB.Query(ctx, countActiveForUser, userID, now)
	count, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(
		&t.ID, &t.UserID, &t.TokenHash,
		&t.CreatedAt, &t.ExpiresAt, &t.LastUsedAt,
		&t.IsRevoked, &t.IPAddress, &t.UserAgent,
	)
	return t, err
}
