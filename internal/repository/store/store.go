// Package store opens the configured credential store and applies its schema.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"auth-api/internal/repository"
	"auth-api/internal/repository/migrations"
	"auth-api/internal/repository/postgres"
	"auth-api/internal/repository/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store bundles the database handle with the repositories built on it.
type Store struct {
	DB    *sql.DB
	Users repository.UserRepository
}

// Open connects to the database for driver, runs pending migrations and
// returns the ready-to-use repositories.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		db    *sql.DB
		users repository.UserRepository
		err   error
	)

	switch driver {
	case DriverSQLite:
		db, err = sqlite.Open(ctx, dsn)
		if err == nil {
			users = sqlite.NewUserRepository(db)
		}
	case DriverPostgres:
		db, err = postgres.Open(ctx, dsn)
		if err == nil {
			users = postgres.NewUserRepository(db)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(ctx, db, driver); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{DB: db, Users: users}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
