package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhub/internal/apperrors"
	"clubhub/internal/models"
	"clubhub/internal/testutil"
)

func Test_EmailVerificationRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	makeToken := func(userID uuid.UUID, hash string) models.EmailVerificationToken {
		return models.EmailVerificationToken{
			ID:        uuid.New(),
			UserID:    userID,
			TokenHash: hash,
			CreatedAt: mustParseTime("2024-01-01 19:00:01Z"),
			ExpiresAt: mustParseTime("2200-01-01 03:00:02Z"),
		}
	}

	t.Run("create is idempotent while token outstanding", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := EmailVerificationRepo{DB: tx}
			user := mustCreateUser(t, tx, "bob@club.example")

			created, err := repo.CreateIfAbsent(t.Context(), makeToken(user.ID, "verify-1"))
			require.NoError(t, err)
			require.True(t, created, "first issue must insert")

			created, err = repo.CreateIfAbsent(t.Context(), makeToken(user.ID, "verify-2"))
			require.NoError(t, err)
			assert.False(t, created, "second issue must be a no-op while the first is valid")

			_, err = repo.GetValidByHash(t.Context(), "verify-2", time.Now())
			assert.ErrorIs(t, err, apperrors.ErrVerificationTokenNotFound)
		})
	})

	t.Run("create again after previous expired", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := EmailVerificationRepo{DB: tx}
			user := mustCreateUser(t, tx, "bob@club.example")

			expired := makeToken(user.ID, "verify-expired")
			expired.ExpiresAt = mustParseTime("2024-01-02 00:00:00Z")
			created, err := repo.CreateIfAbsent(t.Context(), expired)
			require.NoError(t, err)
			require.True(t, created)

			fresh := makeToken(user.ID, "verify-fresh")
			fresh.CreatedAt = time.Now()
			created, err = repo.CreateIfAbsent(t.Context(), fresh)
			require.NoError(t, err)
			assert.True(t, created, "expired token must not block a new issue")
		})
	})

	t.Run("get valid token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := EmailVerificationRepo{DB: tx}
			user := mustCreateUser(t, tx, "bob@club.example")
			token := makeToken(user.ID, "verify-1")
			_, err := repo.CreateIfAbsent(t.Context(), token)
			require.NoError(t, err)

			got, err := repo.GetValidByHash(t.Context(), token.TokenHash, time.Now())

			require.NoError(t, err)
			require.Equal(t, token.ID, got.ID)
			require.Equal(t, user.ID, got.UserID)
			require.Nil(t, got.VerifiedAt)
		})
	})

	t.Run("mark verified works exactly once", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := EmailVerificationRepo{DB: tx}
			user := mustCreateUser(t, tx, "bob@club.example")
			token := makeToken(user.ID, "verify-1")
			_, err := repo.CreateIfAbsent(t.Context(), token)
			require.NoError(t, err)

			err = repo.MarkVerified(t.Context(), token.ID, time.Now())
			require.NoError(t, err)

			err = repo.MarkVerified(t.Context(), token.ID, time.Now())
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrVerificationTokenNotFound)

			_, err = repo.GetValidByHash(t.Context(), token.TokenHash, time.Now())
			assert.ErrorIs(t, err, apperrors.ErrVerificationTokenNotFound, "consumed token is no longer valid")
		})
	})
}
