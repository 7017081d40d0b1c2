// Package hub tracks live connections partitioned by scope and fans
// messages out to them.
package hub

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/agora-live/agora/pkg/models"
)

// Registry is the single source of truth for "who can receive messages
// right now". Membership is sharded per scope with its own lock, so
// unrelated rooms' traffic never serializes against each other; the outer
// mutex only guards the shard map itself.
//
// The registry holds room ids, never room state: whether a room logically
// exists is decided by the persisted store alone.
type Registry struct {
	mu     sync.RWMutex
	scopes map[models.Scope]*scopeSet

	// retired records scopes that have been evicted. Room ids are never
	// reused, so a join against a retired scope is always a stale join.
	// The map grows by one id per retired room for the life of the
	// process; at a handful of rooms per reconciliation cycle that stays
	// far below anything worth a pruning scheme.
	retired map[models.Scope]struct{}
}

type scopeSet struct {
	mu     sync.Mutex
	closed bool
	conns  map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		scopes:  make(map[models.Scope]*scopeSet),
		retired: make(map[models.Scope]struct{}),
	}
}

// Join registers a new session under scope. Concurrent joins on the same
// scope never clobber each other; a join racing an eviction of that scope
// either lands before it (and is evicted with the rest) or fails with
// models.ErrScopeClosed.
func (r *Registry) Join(scope models.Scope, handle string) (*Session, error) {
	r.mu.Lock()
	if _, gone := r.retired[scope]; gone {
		r.mu.Unlock()
		return nil, models.ErrScopeClosed
	}
	set, ok := r.scopes[scope]
	if !ok {
		set = &scopeSet{conns: make(map[string]*Session)}
		r.scopes[scope] = set
	}
	r.mu.Unlock()

	set.mu.Lock()
	defer set.mu.Unlock()
	if set.closed {
		return nil, models.ErrScopeClosed
	}

	sess := newSession(scope, handle)
	set.conns[sess.id] = sess

	log.Debug().Str("conn", sess.id).Int64("scope", int64(scope)).
		Str("handle", handle).Int("members", len(set.conns)).
		Msg("Connection joined")
	return sess, nil
}

// Leave removes a session from its scope and destroys it. An empty scope's
// entry is pruned for memory hygiene; pruning says nothing about whether
// the room still exists.
func (r *Registry) Leave(sess *Session) {
	r.mu.Lock()
	set, ok := r.scopes[sess.scope]
	r.mu.Unlock()
	if !ok {
		sess.close()
		return
	}

	set.mu.Lock()
	delete(set.conns, sess.id)
	empty := len(set.conns) == 0 && !set.closed
	set.mu.Unlock()

	sess.close()

	if empty {
		r.mu.Lock()
		// Re-check under the outer lock: a join may have repopulated it.
		set.mu.Lock()
		if len(set.conns) == 0 && r.scopes[sess.scope] == set {
			delete(r.scopes, sess.scope)
		}
		set.mu.Unlock()
		r.mu.Unlock()
	}

	log.Debug().Str("conn", sess.id).Int64("scope", int64(sess.scope)).
		Msg("Connection left")
}

// Broadcast delivers env to every session registered under scope at the
// moment of the call. Delivery order is FIFO per scope. A single dead peer
// is dropped and logged without aborting the rest of the fan-out.
// Returns the number of sessions the envelope was delivered to.
func (r *Registry) Broadcast(scope models.Scope, env models.Envelope) int {
	r.mu.RLock()
	set, ok := r.scopes[scope]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	// Enqueueing under the scope lock is what gives per-scope FIFO:
	// two broadcasts on one scope cannot interleave their deliveries.
	set.mu.Lock()
	delivered := 0
	var dead []*Session
	for _, sess := range set.conns {
		if err := sess.deliver(env); err != nil {
			dead = append(dead, sess)
			continue
		}
		delivered++
	}
	for _, sess := range dead {
		delete(set.conns, sess.id)
	}
	set.mu.Unlock()

	for _, sess := range dead {
		sess.close()
		log.Debug().Str("conn", sess.id).Int64("scope", int64(scope)).
			Msg("Dead connection removed during broadcast")
	}
	return delivered
}

// Evict sends the terminal notice to every member of scope, destroys their
// sessions, and permanently closes the scope. Atomic with respect to
// concurrent joins: once eviction begins, no join can land in the scope.
func (r *Registry) Evict(scope models.Scope, notice models.Envelope) int {
	r.mu.Lock()
	r.retired[scope] = struct{}{}
	set, ok := r.scopes[scope]
	delete(r.scopes, scope)
	r.mu.Unlock()
	if !ok {
		return 0
	}

	set.mu.Lock()
	set.closed = true
	members := make([]*Session, 0, len(set.conns))
	for _, sess := range set.conns {
		members = append(members, sess)
	}
	set.conns = make(map[string]*Session)
	set.mu.Unlock()

	for _, sess := range members {
		// Best effort: the peer may already be gone.
		_ = sess.deliver(notice)
		sess.close()
	}

	if len(members) > 0 {
		log.Info().Int64("scope", int64(scope)).Int("evicted", len(members)).
			Msg("Scope evicted")
	}
	return len(members)
}

// Count returns the number of sessions currently registered under scope.
func (r *Registry) Count(scope models.Scope) int {
	r.mu.RLock()
	set, ok := r.scopes[scope]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	return len(set.conns)
}
