package models

import "errors"

// Structured outcomes surfaced by the core. The HTTP layer maps these to
// transport codes; the core never deals in status codes itself.
var (
	// ErrNotFound means the addressed entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness constraint was violated.
	ErrConflict = errors.New("conflict")

	// ErrScopeClosed means a join raced against (or arrived after) the
	// eviction of its target scope.
	ErrScopeClosed = errors.New("room no longer exists")

	// ErrReservedHandle means a participant tried to claim the system handle.
	ErrReservedHandle = errors.New("handle is reserved")
)
