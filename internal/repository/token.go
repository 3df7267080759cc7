package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/atinyakov/cloudtty/internal/models"
)

// ErrDuplicate is returned when a token value is already taken.
var ErrDuplicate = errors.New("repository: duplicate")

// PostgreSQL error codes.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// PostgresTokenRepository stores single-use connection tokens in PostgreSQL.
type PostgresTokenRepository struct {
	DB *sql.DB
}

// NewPostgresTokenRepository creates a new PostgresTokenRepository.
func NewPostgresTokenRepository(db *sql.DB) *PostgresTokenRepository {
	return &PostgresTokenRepository{DB: db}
}

// StoreToken saves t. It returns ErrDuplicate if the value is taken and
// ErrNotFound if the user does not exist.
func (r *PostgresTokenRepository) StoreToken(ctx context.Context, t models.Token) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO tokens (value, login, expires_at) VALUES ($1, $2, $3)`,
		t.Value, t.Login, t.ExpiresAt.UTC(),
	)
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return ErrDuplicate
		case foreignKeyViolation:
			return ErrNotFound
		}
	}
	return fmt.Errorf("StoreToken failed: %w", err)
}

// ConsumeToken deletes the token with the given value and returns the login
// it was issued to. Expired or unknown tokens yield ErrNotFound. A token can
// be consumed at most once.
func (r *PostgresTokenRepository) ConsumeToken(ctx context.Context, value string, now time.Time) (string, error) {
	var login string
	err := r.DB.QueryRowContext(
		ctx,
		`DELETE FROM tokens WHERE value = $1 AND expires_at > $2 RETURNING login`,
		value, now.UTC(),
	).Scan(&login)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("ConsumeToken failed: %w", err)
	}
	return login, nil
}
