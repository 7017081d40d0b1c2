package models

import "time"

// SystemHandle is the reserved author handle for join/leave/evict notices.
// Participant handles must never collide with it.
const SystemHandle = "system"

// Scope addresses a broadcast target: a room id, or ScopeGlobal for the
// unpartitioned global channel.
type Scope int64

// ScopeGlobal is the implicit room-less channel.
const ScopeGlobal Scope = 0

// IsGlobal reports whether the scope is the global channel.
func (s Scope) IsGlobal() bool { return s == ScopeGlobal }

// RoomID returns the room id a non-global scope points at.
func (s Scope) RoomID() int64 { return int64(s) }

// Message is one append-only chat message. Immutable once created.
type Message struct {
	ID             int64     `db:"id" json:"id"`
	Scope          Scope     `db:"scope" json:"scope"`
	Author         string    `db:"author" json:"author"`
	Body           string    `db:"body" json:"body"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	CreatedAtEpoch int64     `db:"created_at_epoch" json:"created_at_epoch"`
}
