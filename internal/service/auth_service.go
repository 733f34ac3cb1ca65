package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"marketplates/internal/captcha"
	"marketplates/internal/metrics"
	"marketplates/internal/model"
	"marketplates/pkg/apierror"
)

const bcryptCost = 12

type LoginInput struct {
	Email        string
	Password     string
	CaptchaToken string
	RemoteIP     string

	// ExistingAccessToken is the value of the caller's session cookie, if any.
	ExistingAccessToken string
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
}

type AuthService struct {
	users   UserStore
	tokens  *TokenService
	captcha CaptchaVerifier
	logger  *slog.Logger
}

// NewAuthService wires the login and token lifecycle. A nil verifier turns
// captcha checks off.
func NewAuthService(users UserStore, tokens *TokenService, verifier CaptchaVerifier, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{users: users, tokens: tokens, captcha: verifier, logger: logger}
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	result, err := s.login(ctx, in)
	metrics.LoginAttempts.WithLabelValues(metrics.Outcome(err)).Inc()
	return result, err
}

func (s *AuthService) login(ctx context.Context, in LoginInput) (LoginResult, error) {
	if in.ExistingAccessToken != "" {
		if _, err := s.tokens.ParseAccess(in.ExistingAccessToken); err == nil {
			return LoginResult{}, apierror.AlreadyAuthenticated()
		}
	}

	if s.captcha != nil {
		if err := s.captcha.Verify(ctx, in.CaptchaToken, in.RemoteIP); err != nil {
			if errors.Is(err, captcha.ErrRejected) {
				return LoginResult{}, apierror.CaptchaRejected()
			}
			return LoginResult{}, fmt.Errorf("verify captcha: %w", err)
		}
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return LoginResult{}, apierror.UserNotFound()
		}
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	if email == "" || in.Password == "" || user.PasswordHash == "" {
		return LoginResult{}, apierror.InvalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		s.logger.Warn("login rejected", "user_id", user.ID, "email", user.Email)
		return LoginResult{}, apierror.InvalidCredentials()
	}

	access, err := s.tokens.Issue(model.TokenKindAccess, user)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, err := s.tokens.Issue(model.TokenKindRefresh, user)
	if err != nil {
		return LoginResult{}, err
	}

	if err := s.users.AppendRefreshToken(ctx, user.ID, refresh); err != nil {
		return LoginResult{}, fmt.Errorf("store refresh token: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return LoginResult{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh mints a new access token from a tracked refresh token. Expired
// entries are pruned from the owner's list before the supplied token is
// verified, so the prune happens even when verification fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	access, err := s.refresh(ctx, refreshToken)
	metrics.TokenRefreshes.WithLabelValues(metrics.Outcome(err)).Inc()
	return access, err
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string) (string, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return "", apierror.MissingToken()
	}

	unverified, err := s.tokens.DecodeUnverified(refreshToken)
	if err != nil || unverified.Email == "" {
		return "", apierror.TokenExpired()
	}

	user, err := s.users.FindByEmail(ctx, unverified.Email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return "", apierror.UserNotFound()
		}
		return "", fmt.Errorf("refresh: %w", err)
	}

	live, err := s.pruneExpired(ctx, user)
	if err != nil {
		return "", err
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", apierror.TokenExpired()
	}
	if claims.UserID != user.ID {
		return "", apierror.TokenForbidden()
	}

	if !live.HasRefreshToken(refreshToken) {
		s.logger.Warn("refresh token not tracked for user, possible replay", "user_id", user.ID, "email", user.Email)
		return "", apierror.TokenForbidden()
	}

	return s.tokens.Issue(model.TokenKindAccess, user)
}

// pruneExpired removes every expired token from the user's list and returns
// the user with the pruned list.
func (s *AuthService) pruneExpired(ctx context.Context, user model.User) (model.User, error) {
	now := s.tokens.now()

	var expired, live []string
	for _, token := range user.RefreshTokenList {
		if s.tokens.expiredAt(token, now) {
			expired = append(expired, token)
			continue
		}
		live = append(live, token)
	}

	if len(expired) > 0 {
		if err := s.users.PullRefreshTokens(ctx, user.ID, expired...); err != nil {
			return model.User{}, fmt.Errorf("prune refresh tokens: %w", err)
		}
		metrics.RefreshTokensPruned.Add(float64(len(expired)))
		s.logger.Debug("pruned refresh tokens", "user_id", user.ID, "count", len(expired))
	}

	user.RefreshTokenList = live
	return user, nil
}

// Logout forgets the refresh token. It never fails from the caller's point
// of view; problems are logged and counted.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	err := s.logout(ctx, strings.TrimSpace(refreshToken))
	if err != nil {
		s.logger.Debug("logout did not remove a token", "error", err)
	}
	metrics.Logouts.WithLabelValues(metrics.Outcome(err)).Inc()
}

func (s *AuthService) logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return apierror.MissingToken()
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return apierror.TokenExpired()
	}

	user, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	if err := s.users.PullRefreshTokens(ctx, user.ID, refreshToken); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// CheckSession verifies the session cookie. Any failure is reported as
// SessionInvalid.
func (s *AuthService) CheckSession(cookie string) (*model.TokenClaims, error) {
	claims, err := s.tokens.ParseAccess(cookie)
	if err != nil {
		return nil, apierror.SessionInvalid()
	}
	return claims, nil
}

// ValidateToken is used by the auth middleware to resolve a bearer of an
// access token.
func (s *AuthService) ValidateToken(token string) (*model.TokenClaims, error) {
	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		return nil, apierror.Unauthorized("invalid or expired session")
	}
	return claims, nil
}

// SeedAdmin creates an Admin account when no user with that email exists.
func (s *AuthService) SeedAdmin(ctx context.Context, email string, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return fmt.Errorf("seed admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	now := time.Now().UTC()
	admin := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "Administrator",
		PasswordHash: string(hash),
		Type:         []string{model.RoleAdmin},
		CSRFSecret:   uuid.NewString(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, model.ErrUserAlreadyExists) {
			return nil
		}
		return fmt.Errorf("seed admin: %w", err)
	}

	s.logger.Info("seeded admin user", "email", email)
	return nil
}
