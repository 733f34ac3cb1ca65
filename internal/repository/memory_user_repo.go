package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"marketplates/internal/model"
)

// MemoryUserRepository keeps users in process memory. It backs the "memory"
// database driver and the service and handler tests.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]model.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: map[string]model.User{}}
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("find user by id: %w", model.ErrUserNotFound)
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return cloneUser(u), nil
		}
	}
	return model.User{}, fmt.Errorf("find user by email: %w", model.ErrUserNotFound)
}

func (r *MemoryUserRepository) Create(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("create user: %w", model.ErrUserAlreadyExists)
		}
	}
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, u model.User) error {
	return r.mutate(u.ID, func(stored *model.User) error {
		stored.Name = u.Name
		stored.PasswordHash = u.PasswordHash
		stored.Type = slices.Clone(u.Type)
		stored.UpdatedAt = u.UpdatedAt
		return nil
	})
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("delete user: %w", model.ErrUserNotFound)
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepository) AppendRefreshToken(_ context.Context, userID string, token string) error {
	return r.mutate(userID, func(stored *model.User) error {
		stored.RefreshTokenList = append(stored.RefreshTokenList, token)
		return nil
	})
}

func (r *MemoryUserRepository) PullRefreshTokens(_ context.Context, userID string, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.mutate(userID, func(stored *model.User) error {
		stored.RefreshTokenList = slices.DeleteFunc(stored.RefreshTokenList, func(t string) bool {
			return slices.Contains(tokens, t)
		})
		return nil
	})
}

func (r *MemoryUserRepository) SetCSRF(_ context.Context, userID string, payload string, iv string) error {
	return r.mutate(userID, func(stored *model.User) error {
		stored.CSRFToken = payload
		stored.CSRFTokenKey = iv
		return nil
	})
}

func (r *MemoryUserRepository) ConsumeCSRF(_ context.Context, userID string, payload string) error {
	return r.mutate(userID, func(stored *model.User) error {
		if stored.CSRFToken == "" || stored.CSRFToken != payload {
			return fmt.Errorf("consume csrf: %w", model.ErrCSRFNotConsumed)
		}
		stored.CSRFToken = ""
		stored.CSRFTokenKey = ""
		return nil
	})
}

func (r *MemoryUserRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

func (r *MemoryUserRepository) mutate(id string, fn func(stored *model.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return fmt.Errorf("update user: %w", model.ErrUserNotFound)
	}
	if err := fn(&stored); err != nil {
		return err
	}
	stored.UpdatedAt = time.Now().UTC()
	r.users[id] = stored
	return nil
}

func cloneUser(u model.User) model.User {
	u.Type = slices.Clone(u.Type)
	u.RefreshTokenList = slices.Clone(u.RefreshTokenList)
	return u
}
