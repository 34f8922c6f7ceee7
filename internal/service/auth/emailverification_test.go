package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhub/internal/apperrors"
)

func Test_AuthService_EmailVerification(t *testing.T) {
	t.Parallel()

	t.Run("registration issues the token", func(t *testing.T) {
		service, storage, notifier := newTestService(t)

		_, err := service.Register(t.Context(), "bob@club.example", "strong-password", "", "")
		require.NoError(t, err)

		raw := notifier.verifys["bob@club.example"]
		require.NotEmpty(t, raw, "registration must deliver a verification secret")

		err = service.ConfirmEmail(t.Context(), raw)
		require.NoError(t, err)

		user, err := storage.User().GetUserByEmail(t.Context(), "bob@club.example")
		require.NoError(t, err)
		assert.True(t, user.IsEmailVerified)
	})

	t.Run("repeated request is a no-op while token outstanding", func(t *testing.T) {
		service, storage, notifier := newTestService(t)
		_, err := service.Register(t.Context(), "bob@club.example", "strong-password", "", "")
		require.NoError(t, err)
		issued := notifier.verifys["bob@club.example"]

		user, err := storage.User().GetUserByEmail(t.Context(), "bob@club.example")
		require.NoError(t, err)

		raw, err := service.RequestEmailVerification(t.Context(), user.ID)

		require.NoError(t, err)
		assert.Empty(t, raw, "no new secret while the first one is still valid")
		assert.Equal(t, issued, notifier.verifys["bob@club.example"], "nothing new may be delivered")

		err = service.ConfirmEmail(t.Context(), issued)
		assert.NoError(t, err, "the original link must still work")
	})

	t.Run("confirm works exactly once", func(t *testing.T) {
		service, _, notifier := newTestService(t)
		_, err := service.Register(t.Context(), "bob@club.example", "strong-password", "", "")
		require.NoError(t, err)
		raw := notifier.verifys["bob@club.example"]

		err = service.ConfirmEmail(t.Context(), raw)
		require.NoError(t, err)

		err = service.ConfirmEmail(t.Context(), raw)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrVerificationTokenNotFound)
	})

	t.Run("confirm unknown token", func(t *testing.T) {
		service, _, _ := newTestService(t)

		err := service.ConfirmEmail(t.Context(), "never-issued")

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrVerificationTokenNotFound)
	})

	t.Run("new token may be issued after confirmation", func(t *testing.T) {
		service, storage, notifier := newTestService(t)
		_, err := service.Register(t.Context(), "bob@club.example", "strong-password", "", "")
		require.NoError(t, err)
		first := notifier.verifys["bob@club.example"]
		require.NoError(t, service.ConfirmEmail(t.Context(), first))

		user, err := storage.User().GetUserByEmail(t.Context(), "bob@club.example")
		require.NoError(t, err)

		raw, err := service.RequestEmailVerification(t.Context(), user.ID)

		require.NoError(t, err)
		assert.NotEmpty(t, raw, "a consumed token must not block a new issue")
		assert.NotEqual(t, first, raw)
	})
}
