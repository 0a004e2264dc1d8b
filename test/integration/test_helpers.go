//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"leetcode-tracker/internal/config"
	"leetcode-tracker/internal/database"
	"leetcode-tracker/internal/handler"
	"leetcode-tracker/internal/middleware"
	"leetcode-tracker/internal/repository"
	"leetcode-tracker/internal/router"
	"leetcode-tracker/internal/service"
)

// newStackServer wires the real Postgres user store and a Redis denylist
// behind the production router.
func newStackServer(t *testing.T) (*httptest.Server, *miniredis.Miniredis) {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, url, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	denylist := repository.NewTokenDenylist(client)
	t.Cleanup(func() { _ = denylist.Close() })

	tokens, err := service.NewTokenIssuer("integration-secret", time.Hour)
	require.NoError(t, err)
	tokens.WithDenylist(denylist)

	authService, err := service.NewAuthService(repository.NewUserRepository(db.Pool), service.NewPasswordHasher(bcrypt.MinCost, 4), tokens)
	require.NoError(t, err)

	cfg := &config.Config{
		AppEnv:           "test",
		RequestTimeout:   10 * time.Second,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}

	server := httptest.NewServer(router.New(cfg, middleware.NewAuthMiddleware(authService), router.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Health: handler.NewHealthHandler(handler.PingFunc(db.Health), denylist),
	}))
	t.Cleanup(server.Close)

	return server, mr
}

func uniqueEmail() string {
	return fmt.Sprintf("%s@x.com", uuid.NewString())
}

func mustNewRequest(t *testing.T, method string, url string, body any, token string) *http.Request {
	t.Helper()

	payload := []byte{}
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

func doRequest(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
