package service

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"marketplates/internal/metrics"
	"marketplates/internal/model"
	"marketplates/internal/util"
	"marketplates/pkg/apierror"
)

// CSRFService issues per-user CSRF tokens and checks them on mutating
// requests. Only the most recently issued token for a user is valid, and it
// is cleared after one successful check.
type CSRFService struct {
	users  UserStore
	tokens *TokenService
	key    []byte
	logger *slog.Logger
}

func NewCSRFService(users UserStore, tokens *TokenService, key []byte, logger *slog.Logger) *CSRFService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSRFService{users: users, tokens: tokens, key: key, logger: logger}
}

// Issue builds a fresh payload for the session owner, stores it with its IV
// and returns the base64 ciphertext the client must echo back.
func (s *CSRFService) Issue(ctx context.Context, accessToken string) (string, error) {
	token, err := s.issue(ctx, accessToken)
	metrics.CSRFChecks.WithLabelValues("issue", metrics.Outcome(err)).Inc()
	if err != nil {
		s.logger.Error("csrf issue failed", "error", err)
		return "", apierror.Unexpected()
	}
	return token, nil
}

func (s *CSRFService) issue(ctx context.Context, accessToken string) (string, error) {
	user, err := s.sessionUser(ctx, accessToken)
	if err != nil {
		return "", err
	}

	nonce, err := util.RandomHex(16)
	if err != nil {
		return "", err
	}

	secret := user.CSRFSecret
	if secret == "" {
		secret = user.ID
	}
	payload := strings.Join([]string{nonce, strconv.FormatInt(s.tokens.now().UnixMilli(), 10), secret}, "-")

	iv, err := util.NewIV()
	if err != nil {
		return "", err
	}

	ciphertext, err := util.EncryptCBC(s.key, iv, []byte(payload))
	if err != nil {
		return "", err
	}

	if err := s.users.SetCSRF(ctx, user.ID, payload, hex.EncodeToString(iv)); err != nil {
		return "", fmt.Errorf("store csrf payload: %w", err)
	}

	return ciphertext, nil
}

// Verify checks a submitted ciphertext against the stored payload and, on a
// match, consumes it. Every failure is reported as CSRFMismatch.
func (s *CSRFService) Verify(ctx context.Context, accessToken string, submitted string) error {
	err := s.verify(ctx, accessToken, submitted)
	metrics.CSRFChecks.WithLabelValues("verify", metrics.Outcome(err)).Inc()
	if err != nil {
		s.logger.Warn("csrf check failed", "error", err)
		return apierror.CSRFMismatch()
	}
	return nil
}

var errCSRFMismatch = errors.New("csrf payload mismatch")

func (s *CSRFService) verify(ctx context.Context, accessToken string, submitted string) error {
	submitted = strings.TrimSpace(submitted)
	if submitted == "" {
		return errors.New("csrf token missing")
	}

	user, err := s.sessionUser(ctx, accessToken)
	if err != nil {
		return err
	}
	if user.CSRFToken == "" || user.CSRFTokenKey == "" {
		return errors.New("no csrf token issued")
	}

	iv, err := hex.DecodeString(user.CSRFTokenKey)
	if err != nil {
		return fmt.Errorf("stored csrf iv: %w", err)
	}

	plaintext, err := util.DecryptCBC(s.key, iv, submitted)
	if err != nil {
		return fmt.Errorf("decrypt csrf token: %w", err)
	}

	if subtle.ConstantTimeCompare(plaintext, []byte(user.CSRFToken)) != 1 {
		return errCSRFMismatch
	}

	if err := s.users.ConsumeCSRF(ctx, user.ID, user.CSRFToken); err != nil {
		return fmt.Errorf("consume csrf token: %w", err)
	}
	return nil
}

func (s *CSRFService) sessionUser(ctx context.Context, accessToken string) (model.User, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return model.User{}, err
	}
	return s.users.FindByID(ctx, claims.UserID)
}
