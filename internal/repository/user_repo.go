package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplates/internal/model"
)

const uniqueViolation = "23505"

const userColumns = `id, email, name, password_hash, type, refresh_tokens,
	csrf_secret, csrf_token, csrf_token_key, created_at, updated_at`

type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("find user by id: %w", model.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("find user by email: %w", model.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, type, refresh_tokens, csrf_secret, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Email, u.Name, u.PasswordHash, nonNil(u.Type), nonNil(u.RefreshTokenList),
		u.CSRFSecret, u.CreatedAt, u.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("create user: %w", model.ErrUserAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, u model.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, password_hash = $3, type = $4, updated_at = $5 WHERE id = $1`,
		u.ID, u.Name, u.PasswordHash, nonNil(u.Type), u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update user: %w", model.ErrUserNotFound)
	}
	return nil
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete user: %w", model.ErrUserNotFound)
	}
	return nil
}

func (r *PostgresUserRepository) SetCSRF(ctx context.Context, userID string, payload string, iv string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET csrf_token = $2, csrf_token_key = $3, updated_at = $4 WHERE id = $1`,
		userID, payload, iv, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set csrf: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set csrf: %w", model.ErrUserNotFound)
	}
	return nil
}

// ConsumeCSRF clears the stored payload only if it still equals payload, so
// two requests racing on the same ciphertext cannot both pass.
func (r *PostgresUserRepository) ConsumeCSRF(ctx context.Context, userID string, payload string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET csrf_token = '', csrf_token_key = '', updated_at = $3
		 WHERE id = $1 AND csrf_token <> '' AND csrf_token = $2`,
		userID, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("consume csrf: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("consume csrf: %w", model.ErrCSRFNotConsumed)
	}
	return nil
}

func (r *PostgresUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Type, &u.RefreshTokenList,
		&u.CSRFSecret, &u.CSRFToken, &u.CSRFTokenKey, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
