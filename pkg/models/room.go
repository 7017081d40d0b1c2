package models

import "time"

// Room is a live discussion entity keyed by its topic label. The label is
// the business key: no two live rooms ever share one. Rooms are owned by the
// reconciler; the connection registry only ever holds room ids.
type Room struct {
	ID         int64     `db:"id" json:"id"`
	Label      string    `db:"label" json:"label"`
	Score      int64     `db:"score" json:"score"`
	LastActive time.Time `db:"last_active" json:"last_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	// MemberIDs is the current set of member item ids. Populated on read
	// paths that ask for it; not stored on the rooms row itself.
	MemberIDs []int64 `db:"-" json:"member_ids,omitempty"`
}

// RoomSummary is the list-view projection of a room.
type RoomSummary struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Score int64  `json:"score"`
}

// RoomDetail is the full read model for a single room.
type RoomDetail struct {
	Room           Room      `json:"room"`
	RecentMessages []Message `json:"recent_messages"`
	Items          []Item    `json:"items"`
}

// Topic is the ephemeral per-cycle clustering proposal that the reconciler
// turns into room mutations. Never persisted.
type Topic struct {
	Label     string  `json:"label"`
	ItemIDs   []int64 `json:"item_ids"`
	Score     int64   `json:"score"`
	Coherence float64 `json:"coherence"`
}

// ReconcileResult reports what one reconciliation cycle changed.
type ReconcileResult struct {
	Created []int64 `json:"created"`
	Updated []int64 `json:"updated"`
	Retired []int64 `json:"retired"`
}

// RoomChange is one create or update inside a cycle plan.
type RoomChange struct {
	Room      *Room
	MemberIDs []int64
	// TouchActivity refreshes last-activity; set only when membership
	// actually changed.
	TouchActivity bool
}

// CyclePlan is the full set of room mutations for one reconciliation cycle.
// The store applies it in a single transaction: a crash mid-cycle leaves
// either the old or the new room set, never a mix.
type CyclePlan struct {
	Creates []*RoomChange
	Updates []*RoomChange
	Retires []int64
	// FullReset retires every room and clears all room-scoped messages.
	// Set on an insufficient-signal cycle.
	FullReset bool
}
