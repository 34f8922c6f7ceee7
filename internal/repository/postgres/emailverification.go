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

type EmailVerificationRepo struct {
	DB DBTX
}

const insertVerificationIfAbsent = `-- name: InsertVerificationIfAbsent
INSERT INTO email_verification_tokens (id, user_id, token_hash, created_at, expires_at)
SELECT $1, $2, $3, $4, $5
WHERE NOT EXISTS (
    SELECT 1 FROM email_verification_tokens
    WHERE user_id = $2 AND verified_at IS NULL AND expires_at > $4
)
`

// CreateIfAbsent makes issuance idempotent: while the user still has an
// unconsumed unexpired token the insert is a no-op and false is returned
func (r *EmailVerificationRepo) CreateIfAbsent(ctx context.Context, token models.EmailVerificationToken) (bool, error) {
	tag, err := r.DB.Exec(ctx, insertVerificationIfAbsent,
		token.ID, token.UserID, token.TokenHash, token.CreatedAt, token.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

const getValidVerificationToken = `-- name: GetValidVerificationToken
SELECT id, user_id, token_hash, created_at, expires_at, verified_at
FROM email_verification_tokens
WHERE token_hash = $1 AND verified_at IS NULL AND expires_at > $2
`

func (r *EmailVerificationRepo) GetValidByHash(ctx context.Context, tokenHash string, now time.Time) (models.EmailVerificationToken, error) {
	rows, _ := r.DB.Query(ctx, getValidVerificationToken, tokenHash, now)
	token, err := pgx.CollectOneRow(rows, rowToVerificationToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, apperrors.ErrVerificationTokenNotFound
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const markVerificationDone = `-- name: MarkVerificationDone
UPDATE email_verification_tokens
SET verified_at = $2
WHERE id = $1 AND verified_at IS NULL
`

func (r *EmailVerificationRepo) MarkVerified(ctx context.Context, tokenID uuid.UUID, verifiedAt time.Time) error {
	tag, err := r.DB.Exec(ctx, markVerificationDone, tokenID, verifiedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrVerificationTokenNotFound
	}

	return nil
}

func rowToVerificationToken(row pgx.CollectableRow) (models.EmailVerificationToken, error) {
	var t models.EmailVerificationToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.VerifiedAt)
	return t, err
}
