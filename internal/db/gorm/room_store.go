package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/agora-live/agora/pkg/models"
)

// RoomStore provides room-related database operations using GORM.
type RoomStore struct {
	db *gorm.DB
}

// NewRoomStore creates a new room store.
func NewRoomStore(store *Store) *RoomStore {
	return &RoomStore{db: store.DB}
}

// ListRooms returns all live rooms, highest score first.
func (s *RoomStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []Room
	err := s.db.WithContext(ctx).
		Order("score DESC, id ASC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}

	result := make([]models.Room, len(rooms))
	for i := range rooms {
		result[i] = toModelRoom(&rooms[i])
	}
	return result, nil
}

// GetRoom retrieves a room with its member item ids.
// Returns models.ErrNotFound if no such room exists.
func (s *RoomStore) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	var room Room
	err := s.db.WithContext(ctx).First(&room, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	memberIDs, err := s.Members(ctx, id)
	if err != nil {
		return nil, err
	}

	m := toModelRoom(&room)
	m.MemberIDs = memberIDs
	return &m, nil
}

// Members returns the member item ids of a room, lowest id first.
func (s *RoomStore) Members(ctx context.Context, roomID int64) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&RoomItem{}).
		Where("room_id = ?", roomID).
		Order("article_id ASC").
		Pluck("article_id", &ids).Error
	return ids, err
}

// UpsertRoom creates the room, or updates score and last-activity of the
// existing room carrying the same label. Returns the room id.
func (s *RoomStore) UpsertRoom(ctx context.Context, room *models.Room) (int64, error) {
	var id int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		id, err = upsertRoomTx(tx, room)
		return err
	})
	return id, err
}

// DeleteRoom removes a room and its membership rows.
// Deleting an absent room is a no-op.
func (s *RoomStore) DeleteRoom(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteRoomTx(tx, id)
	})
}

// SetRoomMembers replaces a room's membership set.
func (s *RoomStore) SetRoomMembers(ctx context.Context, roomID int64, itemIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return setMembersTx(tx, roomID, itemIDs)
	})
}

// ApplyCycle applies one reconciliation cycle's mutations in a single
// transaction. Created rooms get their assigned ids written back into the
// plan so the caller can report them.
func (s *RoomStore) ApplyCycle(ctx context.Context, plan *models.CyclePlan) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		for _, change := range plan.Creates {
			room := Room{
				Label:      change.Room.Label,
				Score:      change.Room.Score,
				LastActive: now,
				CreatedAt:  now,
			}
			if err := tx.Create(&room).Error; err != nil {
				if isUniqueViolation(err) {
					return models.ErrConflict
				}
				return err
			}
			change.Room.ID = room.ID
			if err := setMembersTx(tx, room.ID, change.MemberIDs); err != nil {
				return err
			}
		}

		for _, change := range plan.Updates {
			updates := map[string]interface{}{"score": change.Room.Score}
			if change.TouchActivity {
				updates["last_active"] = now
			}
			if err := tx.Model(&Room{}).
				Where("id = ?", change.Room.ID).
				Updates(updates).Error; err != nil {
				return err
			}
			if err := setMembersTx(tx, change.Room.ID, change.MemberIDs); err != nil {
				return err
			}
		}

		for _, id := range plan.Retires {
			if err := deleteRoomTx(tx, id); err != nil {
				return err
			}
		}

		if plan.FullReset {
			// Quiet period: tear down all discussion state, keep the
			// global channel's history.
			if err := tx.Where("scope <> ?", int64(models.ScopeGlobal)).
				Delete(&ChatMessage{}).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// TouchActivity refreshes a room's last-activity timestamp.
func (s *RoomStore) TouchActivity(ctx context.Context, roomID int64) error {
	return s.db.WithContext(ctx).
		Model(&Room{}).
		Where("id = ?", roomID).
		Update("last_active", time.Now()).Error
}

// upsertRoomTx creates or updates a room by label inside tx.
func upsertRoomTx(tx *gorm.DB, room *models.Room) (int64, error) {
	var existing Room
	err := tx.Where("label = ?", room.Label).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created := Room{
			Label:      room.Label,
			Score:      room.Score,
			LastActive: time.Now(),
			CreatedAt:  time.Now(),
		}
		if err := tx.Create(&created).Error; err != nil {
			return 0, err
		}
		room.ID = created.ID
		return created.ID, nil
	}
	if err != nil {
		return 0, err
	}

	if err := tx.Model(&Room{}).
		Where("id = ?", existing.ID).
		Update("score", room.Score).Error; err != nil {
		return 0, err
	}
	room.ID = existing.ID
	return existing.ID, nil
}

// deleteRoomTx removes a room's messages, membership rows, and then the
// room row inside tx. Room ids are never reused, so messages left behind
// would be orphaned forever.
func deleteRoomTx(tx *gorm.DB, id int64) error {
	if err := tx.Where("scope = ?", id).Delete(&ChatMessage{}).Error; err != nil {
		return err
	}
	if err := tx.Where("room_id = ?", id).Delete(&RoomItem{}).Error; err != nil {
		return err
	}
	return tx.Delete(&Room{}, id).Error
}

// setMembersTx replaces a room's membership rows inside tx.
func setMembersTx(tx *gorm.DB, roomID int64, itemIDs []int64) error {
	if err := tx.Where("room_id = ?", roomID).Delete(&RoomItem{}).Error; err != nil {
		return err
	}
	for _, itemID := range itemIDs {
		if err := tx.Create(&RoomItem{RoomID: roomID, ArticleID: itemID}).Error; err != nil {
			return err
		}
	}
	return nil
}
