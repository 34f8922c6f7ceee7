package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clubhub/internal/apperrors"
	"clubhub/internal/models"
	"clubhub/internal/repository"
	"clubhub/internal/secrets"
)

// RequestPasswordReset issues a fresh single-use reset token for the
// account behind email and hands the raw secret to the notifier.
// Any previously issued reset token of that user is invalidated, so at
// most one stays valid.
// Returns apperrors.ErrUserNotFound for unknown emails: the HTTP caller
// is expected to swallow it to avoid an account existence oracle
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.storage.User().GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	raw, err := secrets.Generate()
	if err != nil {
		return "", err
	}

	_, err = s.storage.PasswordReset().Replace(ctx, models.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: secrets.Hash(raw),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(PasswordResetTokenTTL),
	})
	if err != nil {
		return "", fmt.Errorf("error while saving reset token. Err: %w", err)
	}

	s.notifier.PasswordResetRequested(ctx, user, raw)

	return raw, nil
}

// ConsumePasswordReset looks the token up without spending it.
// Expired, used and unknown secrets are all apperrors.ErrResetTokenNotFound
func (s *AuthService) ConsumePasswordReset(ctx context.Context, raw string) (models.PasswordResetToken, error) {
	return s.storage.PasswordReset().GetValidByHash(ctx, secrets.Hash(raw), time.Now())
}

// ResetPassword spends the reset token and replaces the user's password.
// Marking the token used, updating the password and revoking every open
// session commit as one transaction: a crash in between can not leave a
// reusable reset link next to an already changed password
func (s *AuthService) ResetPassword(ctx context.Context, raw string, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password. Err: %w", err)
	}

	return s.storage.InTx(ctx, func(txs repository.Storage) error {
		token, err := txs.PasswordReset().GetValidByHash(ctx, secrets.Hash(raw), time.Now())
		if err != nil {
			return err
		}

		if err := txs.PasswordReset().MarkUsed(ctx, token.ID, time.Now()); err != nil {
			// Lost the race against a concurrent consume of the same link
			if errors.Is(err, apperrors.ErrResetTokenUsed) {
				return apperrors.ErrResetTokenNotFound
			}
			return err
		}

		if err := txs.User().UpdatePassword(ctx, token.UserID, hash); err != nil {
			return err
		}

		// A changed password means every outstanding session is suspect
		_, err = txs.RefreshToken().RevokeAllForUser(ctx, token.UserID)
		return err
	})
}
