package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"leetcode-tracker/internal/config"
	"leetcode-tracker/internal/handler"
	"leetcode-tracker/internal/middleware"
	"leetcode-tracker/internal/model"
	"leetcode-tracker/internal/repository"
	"leetcode-tracker/internal/service"
)

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	issuer, err := service.NewTokenIssuer("router-test-secret", time.Hour)
	require.NoError(t, err)

	authService, err := service.NewAuthService(repository.NewMemoryUserRepository(), service.NewPasswordHasher(bcrypt.MinCost, 2), issuer)
	require.NoError(t, err)

	databaseUp := handler.PingFunc(func(context.Context) error { return nil })

	srv := httptest.NewServer(New(cfg, middleware.NewAuthMiddleware(authService), Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Health: handler.NewHealthHandler(databaseUp, nil),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:           "test",
		RequestTimeout:   5 * time.Second,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     -1,
		AuthRateLimitRPM: 1000,
	}
}

func do(t *testing.T, srv *httptest.Server, method string, path string, body string, token string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, payload
}

func TestRouter_RegisterLoginMe(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testConfig())

	resp, body := do(t, srv, http.MethodPost, "/api/auth/register", `{"email":"a@x.com","username":"alice","password":"password1"}`, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = do(t, srv, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"password1"}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var login model.LoginResult
	require.NoError(t, json.Unmarshal(body, &login))
	require.NotEmpty(t, login.Token)

	resp, body = do(t, srv, http.MethodGet, "/api/auth/me", "", login.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var profile map[string]any
	require.NoError(t, json.Unmarshal(body, &profile))
	assert.Equal(t, float64(login.User.ID), profile["id"])
	assert.Equal(t, "a@x.com", profile["email"])
	assert.Equal(t, "alice", profile["username"])
	assert.NotContains(t, string(body), "password")

	resp, body = do(t, srv, http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"AUTHENTICATION_REQUIRED","message":"No token provided"}`, string(body))

	resp, body = do(t, srv, http.MethodGet, "/api/auth/me", "", login.Token[:len(login.Token)-1])
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), `"INVALID_TOKEN"`)

	wrongResp, wrongBody := do(t, srv, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"password2"}`, "")
	ghostResp, ghostBody := do(t, srv, http.MethodPost, "/api/auth/login", `{"email":"ghost@x.com","password":"password1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, wrongResp.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, ghostResp.StatusCode)
	assert.Equal(t, wrongBody, ghostBody)

	resp, _ = do(t, srv, http.MethodPost, "/api/auth/logout", "", login.Token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Stateless lifecycle: the token outlives logout when no denylist is set.
	resp, _ = do(t, srv, http.MethodGet, "/api/auth/me", "", login.Token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_AmbientBehaviour(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testConfig())

	resp, body := do(t, srv, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"database":"connected"`)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, body = do(t, srv, http.MethodGet, "/api/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"NOT_FOUND","message":"Route not found"}`, string(body))

	resp, body = do(t, srv, http.MethodGet, "/api/auth/login", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Contains(t, string(body), `"METHOD_NOT_ALLOWED"`)
}

func TestRouter_AuthRateLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.AuthRateLimitRPM = 2
	srv := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		resp, _ := do(t, srv, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"password1"}`, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := do(t, srv, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"password1"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, string(body), `"RATE_LIMITED"`)

	resp, _ = do(t, srv, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
