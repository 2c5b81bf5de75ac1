package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"auth-api/internal/domain"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned by Create when the name is already taken.
	ErrUserExists = errors.New("user already exists")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByName(ctx context.Context, name string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	SetSuperuser(ctx context.Context, name string, superuser bool) error
}
