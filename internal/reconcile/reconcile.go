// Package reconcile diffs each cycle's accepted topics against the live
// room set and applies the resulting create/update/retire operations.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/agora-live/agora/pkg/models"
)

// Store is the narrow persistence contract the reconciler needs.
type Store interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	Members(ctx context.Context, roomID int64) ([]int64, error)
	ApplyCycle(ctx context.Context, plan *models.CyclePlan) error
}

// Evictor force-disconnects every live connection bound to a room.
type Evictor interface {
	EvictRoom(roomID int64) int
}

// Reconciler owns room lifecycle. Rooms are created when a cycle proposes a
// label with no live room, updated on a label match, and retired when their
// label goes unproposed.
type Reconciler struct {
	store   Store
	evictor Evictor
}

// New creates a reconciler.
func New(store Store, evictor Evictor) *Reconciler {
	return &Reconciler{store: store, evictor: evictor}
}

// Reconcile applies one cycle's accepted topics. All store mutations ride a
// single transaction; evictions for retired rooms happen after the commit
// and strictly before the cycle is acknowledged to the caller, so a
// concurrent join sees either a live, joinable room or no room at all.
//
// An empty topic set is the insufficient-signal outcome: every room is
// retired and all room-scoped messages are cleared. Reconcile is
// idempotent — a second call with the same topics changes nothing.
func (r *Reconciler) Reconcile(ctx context.Context, topics []models.Topic) (models.ReconcileResult, error) {
	var result models.ReconcileResult

	rooms, err := r.store.ListRooms(ctx)
	if err != nil {
		return result, fmt.Errorf("list rooms: %w", err)
	}

	byLabel := make(map[string]*models.Room, len(rooms))
	for i := range rooms {
		byLabel[rooms[i].Label] = &rooms[i]
	}

	plan := &models.CyclePlan{FullReset: len(topics) == 0}

	proposed := make(map[string]bool, len(topics))
	for _, topic := range topics {
		proposed[topic.Label] = true

		memberIDs := sortedCopy(topic.ItemIDs)
		existing, ok := byLabel[topic.Label]
		if !ok {
			plan.Creates = append(plan.Creates, &models.RoomChange{
				Room:      &models.Room{Label: topic.Label, Score: topic.Score},
				MemberIDs: memberIDs,
			})
			continue
		}

		current, err := r.store.Members(ctx, existing.ID)
		if err != nil {
			return result, fmt.Errorf("load members of room %d: %w", existing.ID, err)
		}
		plan.Updates = append(plan.Updates, &models.RoomChange{
			Room:          &models.Room{ID: existing.ID, Label: topic.Label, Score: topic.Score},
			MemberIDs:     memberIDs,
			TouchActivity: !equalIDs(current, memberIDs),
		})
	}

	for i := range rooms {
		if !proposed[rooms[i].Label] {
			plan.Retires = append(plan.Retires, rooms[i].ID)
		}
	}

	if err := r.store.ApplyCycle(ctx, plan); err != nil {
		return result, fmt.Errorf("apply cycle: %w", err)
	}

	// Deletions are committed; now tear down the retired rooms' live
	// connections before acknowledging the cycle.
	for _, id := range plan.Retires {
		r.evictor.EvictRoom(id)
	}

	for _, change := range plan.Creates {
		result.Created = append(result.Created, change.Room.ID)
	}
	for _, change := range plan.Updates {
		result.Updated = append(result.Updated, change.Room.ID)
	}
	result.Retired = plan.Retires

	log.Info().
		Int("topics", len(topics)).
		Int("created", len(result.Created)).
		Int("updated", len(result.Updated)).
		Int("retired", len(result.Retired)).
		Bool("full_reset", plan.FullReset).
		Msg("Reconcile cycle applied")

	return result, nil
}

// sortedCopy returns ids sorted ascending without mutating the input.
func sortedCopy(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// equalIDs compares two ascending id slices.
func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
