// Package services – AuthService
//
// This file implements registration and login. Passwords are bcrypt-hashed;
// usernames are NFC-normalized and lowercased so visually identical names
// cannot coexist. Login failures never reveal whether the username exists.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/parleyhq/go-messenger-backend/internal/auth"
	"github.com/parleyhq/go-messenger-backend/internal/domain"
	"github.com/parleyhq/go-messenger-backend/internal/repo"
)

const (
	minPasswordRunes = 8
	maxUsernameRunes = 64
)

// AuthRepo defines the repository contract required by AuthService.
type AuthRepo interface {
	CreateUser(ctx context.Context, db *gorm.DB, username, email, passwordHash string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error)
}

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	DB   *gorm.DB
	Repo AuthRepo

	// Secret signs issued tokens; TokenTTL bounds their lifetime.
	Secret   []byte
	TokenTTL time.Duration
}

// NewAuthService constructs an AuthService with a default 24h token lifetime.
func NewAuthService(db *gorm.DB, r AuthRepo, secret []byte) *AuthService {
	return &AuthService{DB: db, Repo: r, Secret: secret, TokenTTL: 24 * time.Hour}
}

// Register creates a user with a bcrypt-hashed password. Returns
// ErrInvalidInput for malformed fields (checked before any store access) and
// ErrUsernameOrEmailTaken when either unique field collides.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = NormalizeUsername(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || utf8.RuneCountInString(username) > maxUsernameRunes {
		return nil, ErrInvalidInput
	}
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}
	if utf8.RuneCountInString(password) < minPasswordRunes {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u, err := s.Repo.CreateUser(ctx, s.DB, username, email, string(hash))
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrUsernameOrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Login verifies the password and mints a signed token for the user. Unknown
// username and wrong password both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	u, err := s.Repo.GetUserByUsername(ctx, s.DB, NormalizeUsername(username))
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := auth.Sign(u.ID, s.Secret, s.TokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// NormalizeUsername canonicalizes a username: trim, NFC-normalize, lowercase.
func NormalizeUsername(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}
