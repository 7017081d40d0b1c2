package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/agora-live/agora/pkg/models"
)

// StoredUser is the read model handed to the auth layer.
type StoredUser struct {
	ID             int64
	Email          string
	Username       string
	HashedPassword string
}

// UserStore provides user account operations using GORM.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a new user store.
func NewUserStore(store *Store) *UserStore {
	return &UserStore{db: store.DB}
}

// Create registers a new account. A duplicate email yields models.ErrConflict.
func (s *UserStore) Create(ctx context.Context, email, username, hashedPassword string) (int64, error) {
	user := User{
		Email:          email,
		Username:       username,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now(),
	}
	err := s.db.WithContext(ctx).Create(&user).Error
	if err != nil {
		if isUniqueViolation(err) {
			return 0, models.ErrConflict
		}
		return 0, err
	}
	return user.ID, nil
}

// GetByEmail looks up an account. Returns models.ErrNotFound if absent.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*StoredUser, error) {
	var user User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &StoredUser{
		ID:             user.ID,
		Email:          user.Email,
		Username:       user.Username,
		HashedPassword: user.HashedPassword,
	}, nil
}
