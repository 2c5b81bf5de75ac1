package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-api/internal/domain"
	"auth-api/internal/repository"
	"auth-api/internal/repository/migrations"
)

func newTestRepo(t *testing.T) *UserRepository {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.Up(ctx, db, "sqlite"))
	return NewUserRepository(db)
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepo(t)

	email := "a@x.com"
	user := &domain.User{Name: "alice", Email: &email, PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	require.NotEqual(t, uuid.Nil, user.ID)
	require.False(t, user.CreatedAt.IsZero())

	byName, err := repo.GetByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
	assert.Equal(t, "hash", byName.PasswordHash)
	require.NotNil(t, byName.Email)
	assert.Equal(t, email, *byName.Email)
	assert.False(t, byName.IsSuperuser)
	assert.WithinDuration(t, user.CreatedAt, byName.CreatedAt, time.Second)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Name)
}

func TestUserRepository_NullEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Create(ctx, &domain.User{Name: "bob", PasswordHash: "h"}))
	got, err := repo.GetByName(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, got.Email)
}

func TestUserRepository_DuplicateName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Create(ctx, &domain.User{Name: "alice", PasswordHash: "h1"}))
	err := repo.Create(ctx, &domain.User{Name: "alice", PasswordHash: "h2"})
	assert.True(t, errors.Is(err, repository.ErrUserExists), "got %v", err)
}

func TestUserRepository_ConcurrentDuplicateName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepo(t)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, &domain.User{Name: "racer", PasswordHash: "h"})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrUserExists)
	}
	assert.Equal(t, 1, created)
}

func TestUserRepository_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.GetByName(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	assert.ErrorIs(t, repo.SetSuperuser(ctx, "ghost", true), repository.ErrUserNotFound)
}

func TestUserRepository_SetSuperuser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepo(t)

	user := &domain.User{Name: "carol", PasswordHash: "h"}
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.SetSuperuser(ctx, "carol", true))
	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSuperuser)

	require.NoError(t, repo.SetSuperuser(ctx, "carol", false))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.IsSuperuser)
}

func TestMigrations_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := Open(ctx, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, migrations.Up(ctx, db, "sqlite"))
	require.NoError(t, migrations.Up(ctx, db, "sqlite"))
	assert.Error(t, migrations.Up(ctx, db, "mysql"))
}
