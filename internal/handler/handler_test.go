package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"marketplates/internal/config"
	"marketplates/internal/middleware"
	"marketplates/internal/model"
	"marketplates/internal/repository"
	"marketplates/internal/service"
)

const testPassword = "correct horse battery"

type testEnv struct {
	repo  *repository.MemoryUserRepository
	auth  *AuthHandler
	csrf  *CSRFHandler
	users *UserHandler

	authMiddleware *middleware.AuthMiddleware
	csrfMiddleware *middleware.CSRFMiddleware
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AccessTokenKey:  strings.Repeat("a", 40),
		RefreshTokenKey: strings.Repeat("r", 40),
		CSRFKey:         []byte(strings.Repeat("k", 32)),
		AccessTokenTTL:  10 * time.Minute,
		RefreshTokenTTL: 365 * 24 * time.Hour,
		CookieSecure:    true,
	}

	repo := repository.NewMemoryUserRepository()
	tokens := service.NewTokenService(cfg)
	authService := service.NewAuthService(repo, tokens, nil, nil)
	csrfService := service.NewCSRFService(repo, tokens, cfg.CSRFKey, nil)

	return &testEnv{
		repo:           repo,
		auth:           NewAuthHandler(authService, cfg.AccessTokenTTL, cfg.CookieSecure),
		csrf:           NewCSRFHandler(csrfService),
		users:          NewUserHandler(service.NewUserService(repo, nil)),
		authMiddleware: middleware.NewAuthMiddleware(authService),
		csrfMiddleware: middleware.NewCSRFMiddleware(csrfService),
	}
}

func (e *testEnv) addUser(t *testing.T, id string, email string, roles ...string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.repo.Create(context.Background(), model.User{
		ID:           id,
		Email:        email,
		Name:         "User " + id,
		PasswordHash: string(hash),
		Type:         roles,
	}))
}

func jsonRequest(t *testing.T, method string, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withSession(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	return req
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", middleware.SessionCookieName)
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func (e *testEnv) login(t *testing.T, email string) (session string, refresh string) {
	t.Helper()

	rec := httptest.NewRecorder()
	e.auth.Login(rec, jsonRequest(t, http.MethodPost, "/auth/login", model.LoginRequest{
		LoginData: model.LoginData{Email: email, Password: testPassword},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[model.LoginResponse](t, rec)
	return sessionCookie(t, rec).Value, body.RefreshToken
}
