package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"marketplates/internal/config"
	"marketplates/internal/model"
)

var ErrWrongTokenKind = errors.New("token kind mismatch")

// TokenService signs and verifies access and refresh tokens. The two kinds
// use separate keys so one can never be accepted as the other.
type TokenService struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(cfg *config.Config) *TokenService {
	return &TokenService{
		accessKey:  []byte(cfg.AccessTokenKey),
		refreshKey: []byte(cfg.RefreshTokenKey),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
	}
}

func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *TokenService) Issue(kind string, user model.User) (string, error) {
	key, ttl, err := s.keyFor(kind)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	claims := model.TokenClaims{
		SessionClaims: model.ClaimsForUser(user),
		Kind:          kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

func (s *TokenService) ParseAccess(token string) (*model.TokenClaims, error) {
	return s.parse(model.TokenKindAccess, token)
}

func (s *TokenService) ParseRefresh(token string) (*model.TokenClaims, error) {
	return s.parse(model.TokenKindRefresh, token)
}

// DecodeUnverified reads the claims without checking the signature or
// expiry. Only use the result to locate a record, never to trust it.
func (s *TokenService) DecodeUnverified(token string) (*model.TokenClaims, error) {
	claims := &model.TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return claims, nil
}

func (s *TokenService) parse(kind string, token string) (*model.TokenClaims, error) {
	key, _, err := s.keyFor(kind)
	if err != nil {
		return nil, err
	}

	claims := &model.TokenClaims{}
	_, err = jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse %s token: %w", kind, err)
	}
	if claims.Kind != kind {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}

func (s *TokenService) keyFor(kind string) ([]byte, time.Duration, error) {
	switch kind {
	case model.TokenKindAccess:
		return s.accessKey, s.accessTTL, nil
	case model.TokenKindRefresh:
		return s.refreshKey, s.refreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("unknown token kind %q", kind)
	}
}

// expiredAt reports whether the token's embedded expiry has passed at now,
// using the same rule as the parser. Tokens that cannot be decoded count as
// expired.
func (s *TokenService) expiredAt(token string, now time.Time) bool {
	claims, err := s.DecodeUnverified(token)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return !now.Before(claims.ExpiresAt.Time)
}
