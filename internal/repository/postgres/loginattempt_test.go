package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhub/internal/models"
	"clubhub/internal/testutil"
)

func Test_LoginAttemptRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	record := func(t *testing.T, tx pgx.Tx, email, ip string, success bool, at time.Time) {
		t.Helper()
		repo := LoginAttemptRepo{DB: tx}
		err := repo.Record(t.Context(), models.LoginAttempt{
			ID:          uuid.New(),
			Email:       email,
			IPAddress:   ip,
			UserAgent:   "clubhub-test",
			Success:     success,
			AttemptedAt: at,
		})
		require.NoError(t, err)
	}

	t.Run("counts failures matching email or ip", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := LoginAttemptRepo{DB: tx}
			now := time.Now()

			record(t, tx, "bob@club.example", "192.0.2.10", false, now)          // matches both
			record(t, tx, "bob@club.example", "203.0.113.7", false, now)         // matches email only
			record(t, tx, "alice@club.example", "192.0.2.10", false, now)        // matches ip only
			record(t, tx, "alice@club.example", "203.0.113.7", false, now)       // matches neither
			record(t, tx, "bob@club.example", "192.0.2.10", true, now)           // success never counts
			record(t, tx, "bob@club.example", "192.0.2.10", false, now.Add(-1*time.Hour)) // outside window

			count, err := repo.CountRecentFailures(t.Context(), "bob@club.example", "192.0.2.10", now.Add(-15*time.Minute))

			require.NoError(t, err)
			assert.Equal(t, int64(3), count)
		})
	})

	t.Run("empty ledger counts zero", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := LoginAttemptRepo{DB: tx}

			count, err := repo.CountRecentFailures(t.Context(), "bob@club.example", "192.0.2.10", time.Now().Add(-15*time.Minute))

			require.NoError(t, err)
			assert.Equal(t, int64(0), count)
		})
	})

	t.Run("boundary of the window is inclusive", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := LoginAttemptRepo{DB: tx}
			since := mustParseTime("2024-06-01 10:00:00Z")

			record(t, tx, "bob@club.example", "192.0.2.10", false, since)

			count, err := repo.CountRecentFailures(t.Context(), "bob@club.example", "192.0.2.10", since)

			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})
	})
}
