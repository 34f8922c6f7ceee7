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

func Test_PasswordResetRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	makeToken := func(userID uuid.UUID, hash string) models.PasswordResetToken {
		return models.PasswordResetToken{
			ID:        uuid.New(),
			UserID:    userID,
			TokenHash: hash,
			CreatedAt: mustParseTime("2024-01-01 19:00:01Z"),
			ExpiresAt: mustParseTime("2200-01-01 03:00:02Z"),
		}
	}

	t.Run("replace saves token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := PasswordResetRepo{DB: tx}
			user := mustCreateUser(t, tx, "bob@club.example")
			token := makeToken(user.ID, "reset-1")

			saved, err := repo.Replace(t.Context(), token)

			require.NoError(t, err)
			require.Equal(t, token.ID, saved.ID)
			require.Equal(t, token.TokenHash, saved.TokenHash)
			require.Nil(t, saved.UsedAt)
		})
	})

	t.Run("replace invalidates previous token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := PasswordResetRepo{DB: tx}
			user := mustCreateUser(t, tx, "bob@club.example")

			_, err := repo.Replace(t.Context(), makeToken(user.ID, "reset-old"))
			require.NoError(t, err)
			_, err = repo.Replace(t.Context(), makeToken(user.ID, "reset-new"))
			require.NoError(t, err)

			_, err = repo.GetValidByHash(t.Context(), "reset-old", time.Now())
			assert.ErrorIs(t, err, apperrors.ErrResetTokenNotFound, "old token must be gone after replace")

			got, err := repo.GetValidByHash(t.Context(), "reset-new", time.Now())
			require.NoError(t, err)
			assert.Equal(t, "reset-new", got.TokenHash)
		})
	})

	t.Run("expired token is not valid", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := PasswordResetRepo{DB: tx}
			user := mustCreateUser(t, tx, "bob@club.example")
			token := makeToken(user.ID, "reset-1")
			token.ExpiresAt = mustParseTime("2024-01-02 00:00:00Z")
			_, err := repo.Replace(t.Context(), token)
			require.NoError(t, err)

			_, err = repo.GetValidByHash(t.Context(), token.TokenHash, time.Now())

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrResetTokenNotFound)
		})
	})

	t.Run("mark used works exactly once", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := PasswordResetRepo{DB: tx}
			user := mustCreateUser(t, tx, "bob@club.example")
			token := makeToken(user.ID, "reset-1")
			_, err := repo.Replace(t.Context(), token)
			require.NoError(t, err)

			err = repo.MarkUsed(t.Context(), token.ID, time.Now())
			require.NoError(t, err)

			err = repo.MarkUsed(t.Context(), token.ID, time.Now())
			require.Error(t, err, "second consume must fail")
			assert.ErrorIs(t, err, apperrors.ErrResetTokenUsed)

			_, err = repo.GetValidByHash(t.Context(), token.TokenHash, time.Now())
			assert.ErrorIs(t, err, apperrors.ErrResetTokenNotFound, "used token is no longer valid")
		})
	})
}
