package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhub/internal/apperrors"
	"clubhub/internal/repository"
)

func Test_Storage_InTx(t *testing.T) {
	t.Parallel()

	t.Run("commit keeps changes", func(t *testing.T) {
		storage := NewStorage()

		err := storage.InTx(t.Context(), func(s repository.Storage) error {
			_, err := s.User().CreateUser(t.Context(), repository.CreateUserParams{
				Email:          "bob@club.example",
				HashedPassword: "stub",
			})
			return err
		})
		require.NoError(t, err)

		_, err = storage.User().GetUserByEmail(t.Context(), "bob@club.example")
		assert.NoError(t, err)
	})

	t.Run("error rolls everything back", func(t *testing.T) {
		storage := NewStorage()
		boom := errors.New("boom")

		err := storage.InTx(t.Context(), func(s repository.Storage) error {
			_, err := s.User().CreateUser(t.Context(), repository.CreateUserParams{
				Email:          "bob@club.example",
				HashedPassword: "stub",
			})
			require.NoError(t, err)
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = storage.User().GetUserByEmail(t.Context(), "bob@club.example")
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "user created inside a failed tx must vanish")
	})
}
