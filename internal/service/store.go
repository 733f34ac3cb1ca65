package service

import (
	"context"

	"marketplates/internal/model"
)

// UserStore is the persistence the session layer needs. Token list and CSRF
// mutations are single atomic operations in every implementation, so
// concurrent requests for one user cannot overwrite each other's changes.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) error
	Update(ctx context.Context, u model.User) error
	Delete(ctx context.Context, id string) error
	AppendRefreshToken(ctx context.Context, userID string, token string) error
	PullRefreshTokens(ctx context.Context, userID string, tokens ...string) error
	SetCSRF(ctx context.Context, userID string, payload string, iv string) error
	ConsumeCSRF(ctx context.Context, userID string, payload string) error
	Count(ctx context.Context) (int, error)
}

type CaptchaVerifier interface {
	Verify(ctx context.Context, token string, remoteIP string) error
}
