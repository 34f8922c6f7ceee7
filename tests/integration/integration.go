// Package integration wires the real service stack over postgres for
// black box HTTP tests. Every run happens inside a rolled back
// transaction, so the database stays clean between tests.
package integration

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"clubhub/internal/handlers"
	"clubhub/internal/logger"
	"clubhub/internal/repository"
	"clubhub/internal/repository/postgres"
	"clubhub/internal/service/auth"
	"clubhub/internal/service/auth/tokenmanager"
	"clubhub/internal/testutil"
)

type Services struct {
	AuthService *auth.AuthService
	Storage     repository.Storage
}

// Create db transaction and run the server with that connection.
// Everything rolls back when the test stops
func RunTx(dbpool *pgxpool.Pool, t *testing.T, fn func(srvURL string, s Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)

		tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret"}, storage)
		require.NoError(t, err, "token manager should be created without errors")

		authService, err := auth.NewService(auth.Config{}, tokenManager, storage)
		require.NoError(t, err, "auth service should be created without errors")

		router := handlers.NewRouter(authService, logger.NewNoOp())

		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(srv.URL, Services{
			AuthService: authService,
			Storage:     storage,
		})
	})
}
