package repository

import (
	"context"
	"fmt"
	"time"

	"marketplates/internal/model"
)

// Refresh tokens live in the users.refresh_tokens array. Both operations are
// single UPDATE statements so concurrent logins, refreshes and logouts for the
// same user never overwrite each other's changes.

func (r *PostgresUserRepository) AppendRefreshToken(ctx context.Context, userID string, token string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET refresh_tokens = array_append(refresh_tokens, $2), updated_at = $3 WHERE id = $1`,
		userID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("append refresh token: %w", model.ErrUserNotFound)
	}
	return nil
}

func (r *PostgresUserRepository) PullRefreshTokens(ctx context.Context, userID string, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET refresh_tokens = ARRAY(
			SELECT t FROM unnest(refresh_tokens) WITH ORDINALITY AS list(t, pos)
			WHERE NOT (t = ANY($2)) ORDER BY pos
		 ), updated_at = $3
		 WHERE id = $1`,
		userID, tokens, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("pull refresh tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pull refresh tokens: %w", model.ErrUserNotFound)
	}
	return nil
}
