package auth

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"clubhub/internal/testutil"
	"clubhub/tests/integration"
)

const (
	RegisterURL = "/api/auth/register"
	LoginURL    = "/api/auth/login"
)

func postJSON(t *testing.T, url string, data string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(data))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	return resp, string(body)
}

func Test_AuthLogin(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("register then login", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			resp, body := postJSON(t, srvURL+RegisterURL, `{"email": "bob@club.example", "password": "StrongEnoughPassword"}`)
			require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", body)

			resp, body = postJSON(t, srvURL+LoginURL, `{"email": "bob@club.example", "password": "StrongEnoughPassword"}`)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `{"message": "User logged in successfully"}`, body)
			require.Equal(t, 1, len(resp.Cookies()))
			require.Equal(t, "refresh_token", resp.Cookies()[0].Name)
			require.Contains(t, resp.Header.Get("Authorization"), "Bearer ")
		})
	})

	t.Run("login wrong password", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			_, err := s.AuthService.Register(t.Context(), "bob@club.example", "StrongEnoughPassword", "", "")
			require.NoError(t, err)

			resp, body := postJSON(t, srvURL+LoginURL, `{"email": "bob@club.example", "password": "WrongPassword"}`)

			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Invalid email or password"
				}`, body)
		})
	})

	t.Run("login throttled after too many failures", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			_, err := s.AuthService.Register(t.Context(), "bob@club.example", "StrongEnoughPassword", "", "")
			require.NoError(t, err)

			for range 5 {
				resp, _ := postJSON(t, srvURL+LoginURL, `{"email": "bob@club.example", "password": "WrongPassword"}`)
				require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			}

			resp, body := postJSON(t, srvURL+LoginURL, `{"email": "bob@club.example", "password": "StrongEnoughPassword"}`)

			require.Equalf(t, http.StatusTooManyRequests, resp.StatusCode, "not expected code. Body: %s", body)
		})
	})
}
