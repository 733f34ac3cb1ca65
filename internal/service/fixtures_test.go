package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"marketplates/internal/config"
	"marketplates/internal/model"
	"marketplates/internal/repository"
)

const testPassword = "correct horse battery"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeCaptcha struct {
	err   error
	calls int
}

func (f *fakeCaptcha) Verify(context.Context, string, string) error {
	f.calls++
	return f.err
}

// lookupRecorder remembers the emails the service asks the store for.
type lookupRecorder struct {
	*repository.MemoryUserRepository
	mu     sync.Mutex
	emails []string
}

func (r *lookupRecorder) FindByEmail(ctx context.Context, email string) (model.User, error) {
	r.mu.Lock()
	r.emails = append(r.emails, email)
	r.mu.Unlock()
	return r.MemoryUserRepository.FindByEmail(ctx, email)
}

type fixture struct {
	repo   *repository.MemoryUserRepository
	clock  *fakeClock
	tokens *TokenService
	auth   *AuthService
	csrf   *CSRFService
	users  *UserService
}

func testConfig() *config.Config {
	return &config.Config{
		AccessTokenKey:  strings.Repeat("a", 40),
		RefreshTokenKey: strings.Repeat("r", 40),
		CSRFKey:         []byte(strings.Repeat("k", 32)),
		AccessTokenTTL:  10 * time.Minute,
		RefreshTokenTTL: 365 * 24 * time.Hour,
	}
}

func newFixture(t *testing.T, verifier CaptchaVerifier) *fixture {
	t.Helper()

	cfg := testConfig()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	tokens := NewTokenService(cfg)
	tokens.now = clock.Now

	repo := repository.NewMemoryUserRepository()
	return &fixture{
		repo:   repo,
		clock:  clock,
		tokens: tokens,
		auth:   NewAuthService(repo, tokens, verifier, nil),
		csrf:   NewCSRFService(repo, tokens, cfg.CSRFKey, nil),
		users:  NewUserService(repo, nil),
	}
}

func (f *fixture) addUser(t *testing.T, id string, email string, roles ...string) model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	if len(roles) == 0 {
		roles = []string{model.RoleUser}
	}
	u := model.User{
		ID:           id,
		Email:        email,
		Name:         "User " + id,
		PasswordHash: string(hash),
		Type:         roles,
		CSRFSecret:   "secret-" + id,
	}
	require.NoError(t, f.repo.Create(context.Background(), u))
	return u
}

func (f *fixture) storedTokens(t *testing.T, id string) []string {
	t.Helper()

	u, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u.RefreshTokenList
}

func (f *fixture) login(t *testing.T, email string) LoginResult {
	t.Helper()

	res, err := f.auth.Login(context.Background(), LoginInput{Email: email, Password: testPassword})
	require.NoError(t, err)
	return res
}
