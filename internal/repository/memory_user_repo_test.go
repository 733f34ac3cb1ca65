package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"marketplates/internal/model"
)

func seedUser(t *testing.T, repo *MemoryUserRepository, id string, email string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), model.User{ID: id, Email: email, Type: []string{model.RoleUser}}))
}

func TestMemoryUserRepository_CreateAndFind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryUserRepository()
	seedUser(t, repo, "u1", "Owner@Example.com")

	found, err := repo.FindByEmail(ctx, " owner@example.com ")
	require.NoError(t, err)
	require.Equal(t, "u1", found.ID)

	err = repo.Create(ctx, model.User{ID: "u2", Email: "owner@example.com"})
	require.ErrorIs(t, err, model.ErrUserAlreadyExists)

	_, err = repo.FindByID(ctx, "missing")
	require.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestMemoryUserRepository_RefreshTokenList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryUserRepository()
	seedUser(t, repo, "u1", "a@example.com")

	require.NoError(t, repo.AppendRefreshToken(ctx, "u1", "t1"))
	require.NoError(t, repo.AppendRefreshToken(ctx, "u1", "t2"))
	require.NoError(t, repo.AppendRefreshToken(ctx, "u1", "t3"))
	require.NoError(t, repo.PullRefreshTokens(ctx, "u1", "t1", "t3", "unknown"))

	u, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"t2"}, u.RefreshTokenList)

	require.ErrorIs(t, repo.AppendRefreshToken(ctx, "missing", "t"), model.ErrUserNotFound)
}

func TestMemoryUserRepository_ConcurrentAppendsAreNotLost(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryUserRepository()
	seedUser(t, repo, "u1", "a@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.AppendRefreshToken(ctx, "u1", fmt.Sprintf("t%d", i))
		}(i)
	}
	wg.Wait()

	u, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, u.RefreshTokenList, 50)
}

func TestMemoryUserRepository_ConsumeCSRF(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryUserRepository()
	seedUser(t, repo, "u1", "a@example.com")

	require.ErrorIs(t, repo.ConsumeCSRF(ctx, "u1", ""), model.ErrCSRFNotConsumed)

	require.NoError(t, repo.SetCSRF(ctx, "u1", "payload", "iv"))
	require.ErrorIs(t, repo.ConsumeCSRF(ctx, "u1", "other"), model.ErrCSRFNotConsumed)
	require.NoError(t, repo.ConsumeCSRF(ctx, "u1", "payload"))
	require.ErrorIs(t, repo.ConsumeCSRF(ctx, "u1", "payload"), model.ErrCSRFNotConsumed)

	u, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, u.CSRFToken)
	require.Empty(t, u.CSRFTokenKey)
}

func TestMemoryUserRepository_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryUserRepository()
	seedUser(t, repo, "u1", "a@example.com")
	require.NoError(t, repo.AppendRefreshToken(ctx, "u1", "t1"))

	u, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	u.RefreshTokenList[0] = "tampered"

	again, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"t1"}, again.RefreshTokenList)
}
