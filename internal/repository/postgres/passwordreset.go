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

type PasswordResetRepo struct {
	DB DBTX
}

const deleteResetTokensForUser = `-- name: DeleteResetTokensForUser
DELETE FROM password_reset_tokens
WHERE user_id = $1
`

const insertResetToken = `-- name: InsertResetToken
INSERT INTO password_reset_tokens (id, user_id, token_hash, created_at, expires_at, used_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, user_id, token_hash, created_at, expires_at, used_at
`

// Replace removes any previous reset rows of the user before inserting,
// so at most one reset token is ever outstanding per user.
// Run it inside a transaction when the delete and insert have to be atomic.
func (r *PasswordResetRepo) Replace(ctx context.Context, token models.PasswordResetToken) (models.PasswordResetToken, error) {
	var saved models.PasswordResetToken

	_, err := r.DB.Exec(ctx, deleteResetTokensForUser, token.UserID)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}

	rows, _ := r.DB.Query(ctx, insertResetToken,
		token.ID, token.UserID, token.TokenHash,
		token.CreatedAt, token.ExpiresAt, token.UsedAt,
	)
	saved, err = pgx.CollectOneRow(rows, rowToResetToken)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}

	return saved, nil
}

const getValidResetToken = `-- name: GetValidResetToken
SELECT id, user_id, token_hash, created_at, expires_at, used_at
FROM password_reset_tokens
WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
`

// Expired, consumed and missing rows are indistinguishable on purpose:
// the caller shows a generic "invalid or expired link" either way
func (r *PasswordResetRepo) GetValidByHash(ctx context.Context, tokenHash string, now time.Time) (models.PasswordResetToken, error) {
	rows, _ := r.DB.Query(ctx, getValidResetToken, tokenHash, now)
	token, err := pgx.CollectOneRow(rows, rowToResetToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, apperrors.ErrResetTokenNotFound
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const markResetTokenUsed = `-- name: MarkResetTokenUsed
UPDATE password_reset_tokens
SET used_at = $2
WHERE id = $1 AND used_at IS NULL
`

// MarkUsed sets used_at exactly once, it never overwrites a spent token
func (r *PasswordResetRepo) MarkUsed(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) error {
	tag, err := r.DB.Exec(ctx, markResetTokenUsed, tokenID, usedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrResetTokenUsed
	}

	return nil
}

func rowToResetToken(row pgx.CollectableRow) (models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.UsedAt)
	return t, err
}
