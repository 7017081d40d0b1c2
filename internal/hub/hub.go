package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/agora-live/agora/pkg/models"
)

// MessageAppender persists one chat message.
type MessageAppender interface {
	Append(ctx context.Context, scope models.Scope, author, body string) (*models.Message, error)
}

// ActivityToucher refreshes a room's last-activity timestamp.
type ActivityToucher interface {
	TouchActivity(ctx context.Context, roomID int64) error
}

// Hub combines the connection registry with message persistence: the
// per-session read→persist→broadcast loop and the join/leave notices live
// here. Chat broadcasts echo back to the sender; the sender's own message
// arrives on its event stream like everyone else's.
type Hub struct {
	registry *Registry
	messages MessageAppender
	rooms    ActivityToucher
}

// New creates a hub.
func New(registry *Registry, messages MessageAppender, rooms ActivityToucher) *Hub {
	return &Hub{registry: registry, messages: messages, rooms: rooms}
}

// Registry exposes the underlying connection registry.
func (h *Hub) Registry() *Registry { return h.registry }

// OpenSession attaches a live connection to a scope and announces the join.
// The participant handle must not shadow the reserved system handle.
func (h *Hub) OpenSession(scope models.Scope, handle string) (*Session, error) {
	if handle == models.SystemHandle {
		return nil, models.ErrReservedHandle
	}
	if handle == "" {
		return nil, fmt.Errorf("empty participant handle")
	}

	sess, err := h.registry.Join(scope, handle)
	if err != nil {
		return nil, err
	}

	h.registry.Broadcast(scope, models.Envelope{
		Type:   models.EventJoin,
		Scope:  scope,
		Author: models.SystemHandle,
		Body:   handle,
		SentAt: time.Now().UnixMilli(),
	})
	return sess, nil
}

// Send persists an inbound chat message from sess, refreshes the room's
// activity, and fans it out to the scope. The persisted message is returned.
func (h *Hub) Send(ctx context.Context, sess *Session, body string) (*models.Message, error) {
	msg, err := h.messages.Append(ctx, sess.scope, sess.handle, body)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	if !sess.scope.IsGlobal() {
		if err := h.rooms.TouchActivity(ctx, sess.scope.RoomID()); err != nil {
			return nil, fmt.Errorf("touch room activity: %w", err)
		}
	}

	h.registry.Broadcast(sess.scope, models.Envelope{
		Type:   models.EventChat,
		Scope:  sess.scope,
		Author: sess.handle,
		Body:   body,
		SentAt: msg.CreatedAtEpoch,
	})
	return msg, nil
}

// CloseSession detaches a connection (transport-level disconnect) and
// announces the departure to the remaining members.
func (h *Hub) CloseSession(sess *Session) {
	h.registry.Leave(sess)
	h.registry.Broadcast(sess.scope, models.Envelope{
		Type:   models.EventLeave,
		Scope:  sess.scope,
		Author: models.SystemHandle,
		Body:   sess.handle,
		SentAt: time.Now().UnixMilli(),
	})
}

// EvictRoom force-disconnects every session bound to a retired room,
// delivering the terminal notice first. Called by the reconciler.
func (h *Hub) EvictRoom(roomID int64) int {
	scope := models.Scope(roomID)
	return h.registry.Evict(scope, models.Envelope{
		Type:   models.EventEvict,
		Scope:  scope,
		Author: models.SystemHandle,
		Body:   "room retired",
		SentAt: time.Now().UnixMilli(),
	})
}
