package gorm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agora-live/agora/pkg/models"
)

func TestRoomStore_UpsertAndGet(t *testing.T) {
	store := testStore(t)
	s := NewRoomStore(store)
	ctx := context.Background()

	room := &models.Room{Label: "election-vote", Score: 12}
	id, err := s.UpsertRoom(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, id, room.ID)

	require.NoError(t, s.SetRoomMembers(ctx, id, []int64{3, 1, 2}))

	got, err := s.GetRoom(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "election-vote", got.Label)
	assert.Equal(t, int64(12), got.Score)
	assert.Equal(t, []int64{1, 2, 3}, got.MemberIDs, "members come back sorted")

	// Upsert on the same label updates in place.
	again, err := s.UpsertRoom(ctx, &models.Room{Label: "election-vote", Score: 30})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	got, err = s.GetRoom(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(30), got.Score)

	_, err = s.GetRoom(ctx, 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRoomStore_ListRoomsOrdering(t *testing.T) {
	s := NewRoomStore(testStore(t))
	ctx := context.Background()

	_, err := s.UpsertRoom(ctx, &models.Room{Label: "low", Score: 1})
	require.NoError(t, err)
	_, err = s.UpsertRoom(ctx, &models.Room{Label: "high", Score: 99})
	require.NoError(t, err)

	rooms, err := s.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "high", rooms[0].Label)
}

func TestRoomStore_DeleteRoom(t *testing.T) {
	s := NewRoomStore(testStore(t))
	ctx := context.Background()

	id, err := s.UpsertRoom(ctx, &models.Room{Label: "gone"})
	require.NoError(t, err)
	require.NoError(t, s.SetRoomMembers(ctx, id, []int64{1, 2}))

	require.NoError(t, s.DeleteRoom(ctx, id))

	_, err = s.GetRoom(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)

	members, err := s.Members(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, members, "membership rows survived the room")

	// Absent room delete is a no-op.
	assert.NoError(t, s.DeleteRoom(ctx, id))
}

func TestRoomStore_ApplyCycle(t *testing.T) {
	store := testStore(t)
	s := NewRoomStore(store)
	ctx := context.Background()

	// Seed one room that the cycle will retire and one it will update.
	staleID, err := s.UpsertRoom(ctx, &models.Room{Label: "stale-topic", Score: 3})
	require.NoError(t, err)
	keptID, err := s.UpsertRoom(ctx, &models.Room{Label: "election-vote", Score: 10})
	require.NoError(t, err)
	require.NoError(t, s.SetRoomMembers(ctx, keptID, []int64{1, 2}))

	plan := &models.CyclePlan{
		Creates: []*models.RoomChange{{
			Room:      &models.Room{Label: "coast-storm", Score: 19},
			MemberIDs: []int64{4, 5},
		}},
		Updates: []*models.RoomChange{{
			Room:          &models.Room{ID: keptID, Label: "election-vote", Score: 15},
			MemberIDs:     []int64{1, 2, 3},
			TouchActivity: true,
		}},
		Retires: []int64{staleID},
	}
	require.NoError(t, s.ApplyCycle(ctx, plan))

	// Created room id was written back.
	createdID := plan.Creates[0].Room.ID
	assert.Greater(t, createdID, int64(0))

	created, err := s.GetRoom(ctx, createdID)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, created.MemberIDs)

	kept, err := s.GetRoom(ctx, keptID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), kept.Score)
	assert.Equal(t, []int64{1, 2, 3}, kept.MemberIDs)

	_, err = s.GetRoom(ctx, staleID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRoomStore_ApplyCycleRollsBackOnConflict(t *testing.T) {
	store := testStore(t)
	s := NewRoomStore(store)
	ctx := context.Background()

	_, err := s.UpsertRoom(ctx, &models.Room{Label: "taken"})
	require.NoError(t, err)

	// First create succeeds, second collides with the existing label; the
	// whole cycle must roll back.
	plan := &models.CyclePlan{
		Creates: []*models.RoomChange{
			{Room: &models.Room{Label: "fresh"}, MemberIDs: []int64{1}},
			{Room: &models.Room{Label: "taken"}, MemberIDs: []int64{2}},
		},
	}
	err = s.ApplyCycle(ctx, plan)
	require.ErrorIs(t, err, models.ErrConflict)

	rooms, err := s.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1, "partial cycle left state behind")
	assert.Equal(t, "taken", rooms[0].Label)
}

func TestRoomStore_ApplyCycleFullResetClearsRoomMessages(t *testing.T) {
	store := testStore(t)
	rooms := NewRoomStore(store)
	messages := NewMessageStore(store)
	ctx := context.Background()

	id, err := rooms.UpsertRoom(ctx, &models.Room{Label: "doomed"})
	require.NoError(t, err)

	_, err = messages.Append(ctx, models.Scope(id), "alice", "room chatter")
	require.NoError(t, err)
	_, err = messages.Append(ctx, models.ScopeGlobal, "alice", "global chatter")
	require.NoError(t, err)

	require.NoError(t, rooms.ApplyCycle(ctx, &models.CyclePlan{
		Retires:   []int64{id},
		FullReset: true,
	}))

	roomCount, err := messages.CountByScope(ctx, models.Scope(id))
	require.NoError(t, err)
	assert.Zero(t, roomCount)

	globalCount, err := messages.CountByScope(ctx, models.ScopeGlobal)
	require.NoError(t, err)
	assert.Equal(t, int64(1), globalCount, "global history must survive a reset")
}

func TestRoomStore_RetireClearsRoomMessages(t *testing.T) {
	store := testStore(t)
	rooms := NewRoomStore(store)
	messages := NewMessageStore(store)
	ctx := context.Background()

	retiring, err := rooms.UpsertRoom(ctx, &models.Room{Label: "retiring"})
	require.NoError(t, err)
	surviving, err := rooms.UpsertRoom(ctx, &models.Room{Label: "surviving"})
	require.NoError(t, err)

	_, err = messages.Append(ctx, models.Scope(retiring), "alice", "last words")
	require.NoError(t, err)
	_, err = messages.Append(ctx, models.Scope(surviving), "bob", "still here")
	require.NoError(t, err)
	_, err = messages.Append(ctx, models.ScopeGlobal, "alice", "global chatter")
	require.NoError(t, err)

	// Retiring one room purges its history; ids are never reused, so
	// anything left behind would be orphaned forever.
	require.NoError(t, rooms.ApplyCycle(ctx, &models.CyclePlan{Retires: []int64{retiring}}))

	retiredCount, err := messages.CountByScope(ctx, models.Scope(retiring))
	require.NoError(t, err)
	assert.Zero(t, retiredCount)

	survivingCount, err := messages.CountByScope(ctx, models.Scope(surviving))
	require.NoError(t, err)
	assert.Equal(t, int64(1), survivingCount)

	globalCount, err := messages.CountByScope(ctx, models.ScopeGlobal)
	require.NoError(t, err)
	assert.Equal(t, int64(1), globalCount)
}

func TestRoomStore_RetiredIDsNeverReused(t *testing.T) {
	s := NewRoomStore(testStore(t))
	ctx := context.Background()

	first, err := s.UpsertRoom(ctx, &models.Room{Label: "one"})
	require.NoError(t, err)
	require.NoError(t, s.DeleteRoom(ctx, first))

	second, err := s.UpsertRoom(ctx, &models.Room{Label: "two"})
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestRoomStore_TouchActivity(t *testing.T) {
	s := NewRoomStore(testStore(t))
	ctx := context.Background()

	id, err := s.UpsertRoom(ctx, &models.Room{Label: "active"})
	require.NoError(t, err)

	before, err := s.GetRoom(ctx, id)
	require.NoError(t, err)

	require.NoError(t, s.TouchActivity(ctx, id))

	after, err := s.GetRoom(ctx, id)
	require.NoError(t, err)
	assert.False(t, after.LastActive.Before(before.LastActive))
}
