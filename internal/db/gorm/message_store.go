package gorm

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/agora-live/agora/pkg/models"
)

// MessageStore provides message-related database operations using GORM.
type MessageStore struct {
	db *gorm.DB
}

// NewMessageStore creates a new message store.
func NewMessageStore(store *Store) *MessageStore {
	return &MessageStore{db: store.DB}
}

// Append stores a new message under the given scope.
func (s *MessageStore) Append(ctx context.Context, scope models.Scope, author, body string) (*models.Message, error) {
	now := time.Now()
	msg := ChatMessage{
		Scope:          int64(scope),
		Author:         author,
		Body:           body,
		CreatedAt:      now,
		CreatedAtEpoch: now.UnixMilli(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	m := toModelMessage(&msg)
	return &m, nil
}

// Recent returns up to limit messages for a scope, oldest first.
func (s *MessageStore) Recent(ctx context.Context, scope models.Scope, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	// Fetch the newest N, then reverse into chronological order.
	var rows []ChatMessage
	err := s.db.WithContext(ctx).
		Where("scope = ?", int64(scope)).
		Order("created_at_epoch DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]models.Message, len(rows))
	for i := range rows {
		result[len(rows)-1-i] = toModelMessage(&rows[i])
	}
	return result, nil
}

// CountByScope returns the number of persisted messages for a scope.
func (s *MessageStore) CountByScope(ctx context.Context, scope models.Scope) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&ChatMessage{}).
		Where("scope = ?", int64(scope)).
		Count(&count).Error
	return count, err
}
