// Package service provides the gateway's authentication logic: password
// checks, user provisioning and single-use connection tokens.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/cloudtty/internal/credential"
	"github.com/atinyakov/cloudtty/internal/models"
	"github.com/atinyakov/cloudtty/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for an unknown login or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for a token that is unknown, expired or used.
	ErrInvalidToken = errors.New("invalid token")
)

const (
	tokenBytes       = 32
	maxIssueAttempts = 3
)

// UserRepository defines the persistence operations on users.
type UserRepository interface {
	// GetUser returns repository.ErrNotFound for an unknown login.
	GetUser(ctx context.Context, login string) (models.User, error)
	UpsertUser(ctx context.Context, u models.User) error
}

// TokenRepository defines the persistence operations on connection tokens.
type TokenRepository interface {
	StoreToken(ctx context.Context, t models.Token) error
	ConsumeToken(ctx context.Context, value string, now time.Time) (string, error)
}

// Service implements authentication operations by delegating storage to the
// repositories.
type Service struct {
	users  UserRepository
	tokens TokenRepository
	ttl    time.Duration
	now    func() time.Time
	random func([]byte) (int, error)
}

// NewAuthService constructs a Service that issues tokens valid for ttl.
func NewAuthService(users UserRepository, tokens TokenRepository, ttl time.Duration) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		ttl:    ttl,
		now:    time.Now,
		random: rand.Read,
	}
}

// Authenticate checks password against the stored hash for login.
func (s *Service) Authenticate(ctx context.Context, login, password string) error {
	u, err := s.users.GetUser(ctx, login)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// RegisterUser creates login with password, or resets the password of an
// existing user.
func (s *Service) RegisterUser(ctx context.Context, login, password string) error {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return errors.New("login and password are required")
	}
	if strings.Contains(login, credential.Separator) {
		return credential.ErrReservedSeparator
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.UpsertUser(ctx, models.User{Login: login, PasswordHash: hash})
}

// IssueToken creates a single-use token for login.
func (s *Service) IssueToken(ctx context.Context, login string) (models.Token, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		buf := make([]byte, tokenBytes)
		if _, err := s.random(buf); err != nil {
			return models.Token{}, fmt.Errorf("failed to generate token: %w", err)
		}
		t := models.Token{
			Value:     hex.EncodeToString(buf),
			Login:     login,
			ExpiresAt: s.now().Add(s.ttl),
		}
		err := s.tokens.StoreToken(ctx, t)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return models.Token{}, err
		}
		return t, nil
	}
	return models.Token{}, errors.New("failed to generate a unique token")
}

// ConsumeToken redeems value and returns the login it was issued to.
func (s *Service) ConsumeToken(ctx context.Context, value string) (string, error) {
	if value == "" {
		return "", ErrInvalidToken
	}
	login, err := s.tokens.ConsumeToken(ctx, value, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	return login, nil
}
