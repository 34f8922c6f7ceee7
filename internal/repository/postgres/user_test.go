package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhub/internal/apperrors"
	"clubhub/internal/models"
	"clubhub/internal/repository"
	"clubhub/internal/testutil"
)

func Test_UserRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create user ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}

			user, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
				Email:          "bob@club.example",
				Role:           models.RoleMember,
				HashedPassword: "bcrypt-stub",
			})

			require.NoError(t, err)
			require.NotEqual(t, uuid.Nil, user.ID)
			require.Equal(t, "bob@club.example", user.Email)
			require.Equal(t, models.RoleMember, user.Role)
			require.Equal(t, "bcrypt-stub", user.HashedPassword)
			assert.True(t, user.IsActive, "new accounts start active")
			assert.False(t, user.IsEmailVerified, "new accounts start unverified")
		})
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			mustCreateUser(t, tx, "bob@club.example")

			_, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
				Email:          "bob@club.example",
				Role:           models.RoleTrainer,
				HashedPassword: "other-stub",
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		})
	})

	t.Run("get by id and email", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			created := mustCreateUser(t, tx, "bob@club.example")

			byID, err := repo.GetUserByID(t.Context(), created.ID)
			require.NoError(t, err)
			require.Equal(t, created.Email, byID.Email)

			byEmail, err := repo.GetUserByEmail(t.Context(), created.Email)
			require.NoError(t, err)
			require.Equal(t, created.ID, byEmail.ID)
		})
	})

	t.Run("get not existed user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}

			_, err := repo.GetUserByID(t.Context(), uuid.New())
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

			_, err = repo.GetUserByEmail(t.Context(), "nobody@club.example")
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("update password", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			created := mustCreateUser(t, tx, "bob@club.example")

			err := repo.UpdatePassword(t.Context(), created.ID, "new-bcrypt-stub")
			require.NoError(t, err)

			got, err := repo.GetUserByID(t.Context(), created.ID)
			require.NoError(t, err)
			require.Equal(t, "new-bcrypt-stub", got.HashedPassword)
		})
	})

	t.Run("update password of not existed user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}

			err := repo.UpdatePassword(t.Context(), uuid.New(), "new-bcrypt-stub")

			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("mark email verified", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			created := mustCreateUser(t, tx, "bob@club.example")

			err := repo.MarkEmailVerified(t.Context(), created.ID)
			require.NoError(t, err)

			got, err := repo.GetUserByID(t.Context(), created.ID)
			require.NoError(t, err)
			assert.True(t, got.IsEmailVerified)
		})
	})
}
