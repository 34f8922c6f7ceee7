package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clubhub/internal/models"
	"clubhub/internal/repository"
	"clubhub/internal/secrets"
)

// issueVerificationToken creates a verification token unless the user
// already holds an unconsumed one. The empty string means the issuance
// was a no-op and there is nothing to deliver
func issueVerificationToken(ctx context.Context, s repository.Storage, userID uuid.UUID) (string, bool, error) {
	raw, err := secrets.Generate()
	if err != nil {
		return "", false, err
	}

	now := time.Now()
	created, err := s.EmailVerification().CreateIfAbsent(ctx, models.EmailVerificationToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: secrets.Hash(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(EmailVerificationTokenTTL),
	})
	if err != nil {
		return "", false, fmt.Errorf("error while saving verification token. Err: %w", err)
	}
	if !created {
		return "", false, nil
	}

	return raw, true, nil
}

// RequestEmailVerification issues a verification token for the user and
// hands the raw secret to the notifier. Idempotent: while an unconsumed
// token exists nothing new is created or delivered
func (s *AuthService) RequestEmailVerification(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}

	raw, created, err := issueVerificationToken(ctx, s.storage, user.ID)
	if err != nil {
		return "", err
	}

	if created {
		s.notifier.EmailVerificationRequested(ctx, user, raw)
	}

	return raw, nil
}

// ConsumeEmailVerification looks the token up without spending it
func (s *AuthService) ConsumeEmailVerification(ctx context.Context, raw string) (models.EmailVerificationToken, error) {
	return s.storage.EmailVerification().GetValidByHash(ctx, secrets.Hash(raw), time.Now())
}

// ConfirmEmail spends the verification token and flips the user's
// is_email_verified flag in one transaction
func (s *AuthService) ConfirmEmail(ctx context.Context, raw string) error {
	return s.storage.InTx(ctx, func(txs repository.Storage) error {
		token, err := txs.EmailVerification().GetValidByHash(ctx, secrets.Hash(raw), time.Now())
		if err != nil {
			return err
		}

		if err := txs.EmailVerification().MarkVerified(ctx, token.ID, time.Now()); err != nil {
			return err
		}

		return txs.User().MarkEmailVerified(ctx, token.UserID)
	})
}
