package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"auth-api/internal/domain"
	"auth-api/internal/repository"
)

const uniqueViolation = "23505"

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, `
INSERT INTO users (id, name, email, password_hash, is_superuser)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsSuperuser,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("insert user %q: %w", user.Name, repository.ErrUserExists)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, email, password_hash, is_superuser, created_at, updated_at
FROM users
WHERE name = $1`, name)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, email, password_hash, is_superuser, created_at, updated_at
FROM users
WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) SetSuperuser(ctx context.Context, name string, superuser bool) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET is_superuser = $1, updated_at = NOW()
WHERE name = $2`, superuser, name)
	if err != nil {
		return fmt.Errorf("update superuser flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update superuser rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		user  domain.User
		email sql.NullString
	)
	err := row.Scan(&user.ID, &user.Name, &email, &user.PasswordHash, &user.IsSuperuser, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if email.Valid {
		user.Email = &email.String
	}
	return &user, nil
}
