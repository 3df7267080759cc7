// Package repository provides PostgreSQL persistence for gateway users and
// connection tokens.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/cloudtty/internal/models"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("repository: not found")

// PostgresAuthRepository implements user persistence using a PostgreSQL database.
type PostgresAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthRepository creates a new PostgresAuthRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

// GetUser loads the user with the given login. It returns ErrNotFound if
// there is no such user.
func (r *PostgresAuthRepository) GetUser(ctx context.Context, login string) (models.User, error) {
	u := models.User{Login: login}
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT password_hash FROM users WHERE login = $1`,
		login,
	).Scan(&u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("GetUser failed: %w", err)
	}
	return u, nil
}

// UpsertUser creates the user or replaces the password hash of an existing one.
func (r *PostgresAuthRepository) UpsertUser(ctx context.Context, u models.User) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO users (login, password_hash) VALUES ($1, $2)
		 ON CONFLICT (login) DO UPDATE SET password_hash = EXCLUDED.password_hash`,
		u.Login, u.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("UpsertUser failed: %w", err)
	}
	return nil
}
