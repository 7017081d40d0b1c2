// Package gorm provides GORM-based database operations for agora.
package gorm

import (
	"time"

	"github.com/agora-live/agora/pkg/models"
)

// GORM Models

// Article is the persisted form of models.Item.
type Article struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Title       string `gorm:"not null"`
	Link        string `gorm:"uniqueIndex;not null"`
	Category    string `gorm:"index"`
	Source      string
	ViewCount   int64     `gorm:"not null;default:0;index"`
	PublishedAt time.Time `gorm:"index"`
	CreatedAt   time.Time `gorm:"index"`
}

func (Article) TableName() string { return "articles" }

// Room is the persisted discussion room. The label carries a unique index:
// room identity is the label, the id is just the surrogate key handed to the
// connection registry. AUTOINCREMENT keeps retired room ids from ever being
// reused for a new room.
type Room struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Label      string `gorm:"uniqueIndex;not null"`
	Score      int64  `gorm:"not null;default:0"`
	LastActive time.Time
	CreatedAt  time.Time
}

func (Room) TableName() string { return "rooms" }

// RoomItem is the room↔article membership association.
type RoomItem struct {
	RoomID    int64 `gorm:"primaryKey;autoIncrement:false"`
	ArticleID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (RoomItem) TableName() string { return "room_items" }

// ChatMessage is one persisted message. Scope 0 is the global channel.
type ChatMessage struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Scope          int64  `gorm:"not null;index:idx_messages_scope_epoch,priority:1"`
	Author         string `gorm:"not null"`
	Body           string `gorm:"not null"`
	CreatedAt      time.Time
	CreatedAtEpoch int64 `gorm:"not null;index:idx_messages_scope_epoch,priority:2"`
}

func (ChatMessage) TableName() string { return "messages" }

// User is a registered participant account.
type User struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Email          string `gorm:"uniqueIndex;not null"`
	Username       string `gorm:"not null"`
	HashedPassword string `gorm:"not null"`
	CreatedAt      time.Time
}

func (User) TableName() string { return "users" }

// toModelItem converts a GORM Article to pkg/models.Item.
func toModelItem(a *Article) models.Item {
	return models.Item{
		ID:          a.ID,
		Title:       a.Title,
		Link:        a.Link,
		Category:    a.Category,
		Source:      a.Source,
		ViewCount:   a.ViewCount,
		PublishedAt: a.PublishedAt,
		CreatedAt:   a.CreatedAt,
	}
}

// toModelItems converts a slice of GORM Articles to pkg/models.Items.
func toModelItems(articles []Article) []models.Item {
	result := make([]models.Item, len(articles))
	for i := range articles {
		result[i] = toModelItem(&articles[i])
	}
	return result
}

// toModelRoom converts a GORM Room to pkg/models.Room.
func toModelRoom(r *Room) models.Room {
	return models.Room{
		ID:         r.ID,
		Label:      r.Label,
		Score:      r.Score,
		LastActive: r.LastActive,
		CreatedAt:  r.CreatedAt,
	}
}

// toModelMessage converts a GORM ChatMessage to pkg/models.Message.
func toModelMessage(m *ChatMessage) models.Message {
	return models.Message{
		ID:             m.ID,
		Scope:          models.Scope(m.Scope),
		Author:         m.Author,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
		CreatedAtEpoch: m.CreatedAtEpoch,
	}
}
