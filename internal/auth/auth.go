package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/agora-live/agora/internal/db/gorm"
	"github.com/agora-live/agora/pkg/models"
)

var (
	// ErrBadCredentials covers both unknown email and wrong password
	// so callers cannot distinguish the two.
	ErrBadCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned for malformed, expired, or
	// wrongly-signed tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Users is the persistence surface the service needs.
type Users interface {
	Create(ctx context.Context, email, username, passwordHash string) (int64, error)
	GetByEmail(ctx context.Context, email string) (*gorm.StoredUser, error)
}

// Service issues and verifies signed bearer tokens for registered users.
type Service struct {
	users    Users
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates the auth service. The secret signs HS256 tokens.
func NewService(users Users, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// Register stores a new user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, username, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", email)
	}
	if username == "" {
		return errors.New("empty username")
	}
	if username == models.SystemHandle {
		return models.ErrReservedHandle
	}
	if len(password) < 4 {
		return errors.New("password too short")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.users.Create(ctx, email, username, string(hash))
	return err
}

// Login verifies credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", ErrBadCredentials
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return "", ErrBadCredentials
	}
	return s.issueToken(email)
}

func (s *Service) issueToken(email string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// GetUser loads the account behind a verified token subject.
func (s *Service) GetUser(ctx context.Context, email string) (*gorm.StoredUser, error) {
	return s.users.GetByEmail(ctx, email)
}

// VerifyToken returns the subject email of a valid token.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
