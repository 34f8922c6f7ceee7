// Package memory holds an in-memory repository.Storage implementation.
// It exists for tests that exercise service logic without postgres:
// a single mutex serializes transactions, state is copied on tx begin and
// restored on rollback. Not meant for production use.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"clubhub/internal/apperrors"
	"clubhub/internal/models"
	"clubhub/internal/repository"
)

type data struct {
	users    map[uuid.UUID]models.User
	refresh  map[string]models.RefreshToken // keyed by token hash
	resets   map[uuid.UUID]models.PasswordResetToken
	verifs   map[uuid.UUID]models.EmailVerificationToken
	attempts []models.LoginAttempt
}

func (d *data) clone() *data {
	c := &data{
		users:    make(map[uuid.UUID]models.User, len(d.users)),
		refresh:  make(map[string]models.RefreshToken, len(d.refresh)),
		resets:   make(map[uuid.UUID]models.PasswordResetToken, len(d.resets)),
		verifs:   make(map[uuid.UUID]models.EmailVerificationToken, len(d.verifs)),
		attempts: append([]models.LoginAttempt(nil), d.attempts...),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.refresh {
		c.refresh[k] = v
	}
	for k, v := range d.resets {
		c.resets[k] = v
	}
	for k, v := range d.verifs {
		c.verifs[k] = v
	}
	return c
}

type Storage struct {
	mu   *sync.Mutex
	data *data

	// inTx storages operate under the already held mutex
	inTx bool
}

func NewStorage() *Storage {
	return &Storage{
		mu: &sync.Mutex{},
		data: &data{
			users:   make(map[uuid.UUID]models.User),
			refresh: make(map[string]models.RefreshToken),
			resets:  make(map[uuid.UUID]models.PasswordResetToken),
			verifs:  make(map[uuid.UUID]models.EmailVerificationToken),
		},
	}
}

// SeedUser upserts the user as is, bypassing repo invariants.
// Handy for tests that need a user in a particular state
func (s *Storage) SeedUser(u models.User) {
	defer s.lock()()
	s.data.users[u.ID] = u
}

func (s *Storage) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Storage) User() repository.UserRepo                   { return &userRepo{s} }
func (s *Storage) RefreshToken() repository.RefreshTokenRepo   { return &refreshRepo{s} }
func (s *Storage) PasswordReset() repository.PasswordResetRepo { return &resetRepo{s} }
func (s *Storage) EmailVerification() repository.EmailVerificationRepo {
	return &verificationRepo{s}
}
func (s *Storage) LoginAttempt() repository.LoginAttemptRepo { return &attemptRepo{s} }

func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()

	err := fn(&Storage{mu: s.mu, data: s.data, inTx: true})
	if err != nil {
		*s.data = *snapshot
		return err
	}

	return nil
}

type userRepo struct{ s *Storage }

func (r *userRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	defer r.s.lock()()

	for _, u := range r.s.data.users {
		if u.Email == params.Email {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}
	}

	user := models.User{
		ID:             uuid.New(),
		CreatedAt:      time.Now(),
		Email:          params.Email,
		Role:           params.Role,
		HashedPassword: params.HashedPassword,
		IsActive:       true,
	}
	r.s.data.users[user.ID] = user

	return user, nil
}

func (r *userRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	defer r.s.lock()()

	user, ok := r.s.data.users[userID]
	if !ok {
		return user, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (r *userRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	defer r.s.lock()()

	for _, u := range r.s.data.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperrors.ErrUserNotFound
}

func (r *userRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error {
	defer r.s.lock()()

	user, ok := r.s.data.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	user.HashedPassword = hashedPassword
	r.s.data.users[userID] = user
	return nil
}

func (r *userRepo) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	defer r.s.lock()()

	user, ok := r.s.data.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	user.IsEmailVerified = true
	r.s.data.users[userID] = user
	return nil
}

type refreshRepo struct{ s *Storage }

func (r *refreshRepo) Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	defer r.s.lock()()

	r.s.data.refresh[token.TokenHash] = token
	return token, nil
}

func (r *refreshRepo) GetByHash(ctx context.Context, tokenHash string) (models.RefreshToken, error) {
	defer r.s.lock()()

	token, ok := r.s.data.refresh[tokenHash]
	if !ok {
		return token, apperrors.ErrRefreshTokenNotFound
	}
	return token, nil
}

func (r *refreshRepo) GetByHashWithUser(ctx context.Context, tokenHash string) (models.RefreshToken, models.User, error) {
	defer r.s.lock()()

	token, ok := r.s.data.refresh[tokenHash]
	if !ok {
		return token, models.User{}, apperrors.ErrRefreshTokenNotFound
	}

	user, ok := r.s.data.users[token.UserID]
	if !ok {
		return token, user, apperrors.ErrRefreshTokenNotFound
	}
	return token, user, nil
}

func (r *refreshRepo) RevokeActive(ctx context.Context, tokenHash string, usedAt time.Time) (models.RefreshToken, error) {
	defer r.s.lock()()

	token, ok := r.s.data.refresh[tokenHash]
	if !ok || token.IsRevoked {
		return models.RefreshToken{}, apperrors.ErrRefreshTokenNotFound
	}

	token.IsRevoked = true
	token.LastUsedAt = &usedAt
	r.s.data.refresh[tokenHash] = token
	return token, nil
}

func (r *refreshRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	defer r.s.lock()()

	var revoked int64
	for hash, token := range r.s.data.refresh {
		if token.UserID == userID && !token.IsRevoked {
			token.IsRevoked = true
			r.s.data.refresh[hash] = token
			revoked++
		}
	}
	return revoked, nil
}

func (r *refreshRepo) CountActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	defer r.s.lock()()

	var count int64
	for _, token := range r.s.data.refresh {
		if token.UserID == userID && !token.IsRevoked && token.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

type resetRepo struct{ s *Storage }

func (r *resetRepo) Replace(ctx context.Context, token models.PasswordResetToken) (models.PasswordResetToken, error) {
	defer r.s.lock()()

	for id, t := range r.s.data.resets {
		if t.UserID == token.UserID {
			delete(r.s.data.resets, id)
		}
	}
	r.s.data.resets[token.ID] = token
	return token, nil
}

func (r *resetRepo) GetValidByHash(ctx context.Context, tokenHash string, now time.Time) (models.PasswordResetToken, error) {
	defer r.s.lock()()

	for _, t := range r.s.data.resets {
		if t.TokenHash == tokenHash && t.UsedAt == nil && t.ExpiresAt.After(now) {
			return t, nil
		}
	}
	return models.PasswordResetToken{}, apperrors.ErrResetTokenNotFound
}

func (r *resetRepo) MarkUsed(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) error {
	defer r.s.lock()()

	token, ok := r.s.data.resets[tokenID]
	if !ok || token.UsedAt != nil {
		return apperrors.ErrResetTokenUsed
	}
	token.UsedAt = &usedAt
	r.s.data.resets[tokenID] = token
	return nil
}

type verificationRepo struct{ s *Storage }

func (r *verificationRepo) CreateIfAbsent(ctx context.Context, token models.EmailVerificationToken) (bool, error) {
	defer r.s.lock()()

	for _, t := range r.s.data.verifs {
		if t.UserID == token.UserID && t.VerifiedAt == nil && t.ExpiresAt.After(token.CreatedAt) {
			return false, nil
		}
	}
	r.s.data.verifs[token.ID] = token
	return true, nil
}

func (r *verificationRepo) GetValidByHash(ctx context.Context, tokenHash string, now time.Time) (models.EmailVerificationToken, error) {
	defer r.s.lock()()

	for _, t := range r.s.data.verifs {
		if t.TokenHash == tokenHash && t.VerifiedAt == nil && t.ExpiresAt.After(now) {
			return t, nil
		}
	}
	return models.EmailVerificationToken{}, apperrors.ErrVerificationTokenNotFound
}

func (r *verificationRepo) MarkVerified(ctx context.Context, tokenID uuid.UUID, verifiedAt time.Time) error {
	defer r.s.lock()()

	token, ok := r.s.data.verifs[tokenID]
	if !ok || token.VerifiedAt != nil {
		return apperrors.ErrVerificationTokenNotFound
	}
	token.VerifiedAt = &verifiedAt
	r.s.data.verifs[tokenID] = token
	return nil
}

type attemptRepo struct{ s *Storage }

func (r *attemptRepo) Record(ctx context.Context, attempt models.LoginAttempt) error {
	defer r.s.lock()()

	r.s.data.attempts = append(r.s.data.attempts, attempt)
	return nil
}

func (r *attemptRepo) CountRecentFailures(ctx context.Context, email string, ip string, since time.Time) (int64, error) {
	defer r.s.lock()()

	var count int64
	for _, a := range r.s.data.attempts {
		if a.Success || a.AttemptedAt.Before(since) {
			continue
		}
		if a.Email == email || a.IPAddress == ip {
			count++
		}
	}
	return count, nil
}
