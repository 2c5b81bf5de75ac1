package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"auth-api/internal/domain"
	"auth-api/internal/repository"
)

const userColumns = `id, name, email, password_hash, is_superuser, created_at, updated_at`

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
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (`+userColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID.String(),
		user.Name,
		nullString(user.Email),
		user.PasswordHash,
		user.IsSuperuser,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return fmt.Errorf("insert user %q: %w", user.Name, repository.ErrUserExists)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE name = ?`,
		name,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = ?`,
		id.String(),
	)
	return scanUser(row)
}

func (r *UserRepository) SetSuperuser(ctx context.Context, name string, superuser bool) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET is_superuser = ?, updated_at = ?
WHERE name = ?`,
		superuser,
		time.Now().UTC(),
		name,
	)
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

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user  domain.User
		email sql.NullString
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&email,
		&user.PasswordHash,
		&user.IsSuperuser,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if email.Valid {
		user.Email = &email.String
	}
	return &user, nil
}
