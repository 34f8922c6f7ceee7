package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"clubhub/internal/models"
	"clubhub/internal/repository"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

// Every token table references users, so most tests need an owner row first
func mustCreateUser(t *testing.T, tx pgx.Tx, email string) models.User {
	t.Helper()

	repo := UserRepo{DB: tx}
	user, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
		Email:          email,
		Role:           models.RoleMember,
		HashedPassword: "bcrypt-stub",
	})
	require.NoError(t, err, "Error happened when creating user the test depends on")

	return user
}
