package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"clubhub/internal/models"
)

type LoginAttemptRepo struct {
	DB DBTX
}

const recordAttempt = `-- name: RecordLoginAttempt
INSERT INTO login_attempts (id, email, ip_address, user_agent, success, attempted_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

// Record appends one ledger row. Nothing ever updates or deletes them
func (r *LoginAttemptRepo) Record(ctx context.Context, attempt models.LoginAttempt) error {
	_, err := r.DB.Exec(ctx, recordAttempt,
		attempt.ID, attempt.Email, attempt.IPAddress,
		attempt.UserAgent, attempt.Success, attempt.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const countRecentFailures = `-- name: CountRecentFailures
SELECT count(*)
FROM login_attempts
WHERE NOT success
  AND attempted_at >= $3
  AND (email = $1 OR ip_address = $2)
`

// CountRecentFailures counts failures in the trailing window matching the
// email OR the ip. Union, not intersection: either signal alone throttles
func (r *LoginAttemptRepo) CountRecentFailures(ctx context.Context, email string, ip string, since time.Time) (int64, error) {
	rows, _ := r.DB.Query(ctx, countRecentFailures, email, ip, since)
	count, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}
