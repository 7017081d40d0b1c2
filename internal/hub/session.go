package hub

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/agora-live/agora/pkg/models"
)

// sessionBuffer is the per-connection outbound queue depth. A peer that
// falls this far behind is treated as gone rather than allowed to stall the
// scope's fan-out.
const sessionBuffer = 64

var errPeerGone = errors.New("peer gone")

// Session is one live connection: bound to a single scope and participant
// handle at creation, destroyed on disconnect or eviction. The transport
// layer drains Events() and writes each envelope to the wire.
type Session struct {
	id     string
	handle string
	scope  models.Scope

	out       chan models.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(scope models.Scope, handle string) *Session {
	return &Session{
		id:     uuid.NewString(),
		handle: handle,
		scope:  scope,
		out:    make(chan models.Envelope, sessionBuffer),
		done:   make(chan struct{}),
	}
}

// ID returns the connection id.
func (s *Session) ID() string { return s.id }

// Handle returns the participant handle bound at creation.
func (s *Session) Handle() string { return s.handle }

// Scope returns the scope bound at creation.
func (s *Session) Scope() models.Scope { return s.scope }

// Events is the outbound envelope stream for the transport writer.
func (s *Session) Events() <-chan models.Envelope { return s.out }

// Done is closed when the session is destroyed.
func (s *Session) Done() <-chan struct{} { return s.done }

// deliver enqueues an envelope without blocking. A closed session or a full
// buffer yields errPeerGone; the registry then drops the connection.
func (s *Session) deliver(env models.Envelope) error {
	select {
	case <-s.done:
		return errPeerGone
	default:
	}

	select {
	case s.out <- env:
		return nil
	default:
		return errPeerGone
	}
}

// close marks the session destroyed. Safe to call more than once.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
