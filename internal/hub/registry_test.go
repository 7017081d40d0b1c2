package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agora-live/agora/pkg/models"
)

func chatEnv(scope models.Scope, body string) models.Envelope {
	return models.Envelope{
		Type:   models.EventChat,
		Scope:  scope,
		Author: "alice",
		Body:   body,
		SentAt: time.Now().UnixMilli(),
	}
}

func TestRegistry_JoinAndCount(t *testing.T) {
	r := NewRegistry()

	a, err := r.Join(models.Scope(1), "alice")
	require.NoError(t, err)
	_, err = r.Join(models.Scope(1), "bob")
	require.NoError(t, err)
	_, err = r.Join(models.Scope(2), "carol")
	require.NoError(t, err)

	assert.Equal(t, 2, r.Count(models.Scope(1)))
	assert.Equal(t, 1, r.Count(models.Scope(2)))
	assert.Equal(t, 0, r.Count(models.ScopeGlobal))

	r.Leave(a)
	assert.Equal(t, 1, r.Count(models.Scope(1)))
}

func TestRegistry_BroadcastScopeIsolation(t *testing.T) {
	r := NewRegistry()

	roomSess, err := r.Join(models.Scope(1), "alice")
	require.NoError(t, err)
	globalSess, err := r.Join(models.ScopeGlobal, "bob")
	require.NoError(t, err)

	delivered := r.Broadcast(models.Scope(1), chatEnv(models.Scope(1), "hi"))
	assert.Equal(t, 1, delivered)

	select {
	case env := <-roomSess.Events():
		assert.Equal(t, "hi", env.Body)
	default:
		t.Fatal("room session received nothing")
	}
	select {
	case env := <-globalSess.Events():
		t.Fatalf("global session leaked room traffic: %+v", env)
	default:
	}
}

func TestRegistry_BroadcastFIFO(t *testing.T) {
	r := NewRegistry()

	sess, err := r.Join(models.Scope(1), "alice")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		r.Broadcast(models.Scope(1), chatEnv(models.Scope(1), string(rune('a'+i))))
	}

	for i := 0; i < 10; i++ {
		env := <-sess.Events()
		assert.Equal(t, string(rune('a'+i)), env.Body)
	}
}

func TestRegistry_DeadPeerDoesNotStallOthers(t *testing.T) {
	r := NewRegistry()

	slow, err := r.Join(models.Scope(1), "slow")
	require.NoError(t, err)
	healthy, err := r.Join(models.Scope(1), "healthy")
	require.NoError(t, err)

	// Flood past the slow peer's buffer while the healthy peer keeps up.
	for i := 0; i <= sessionBuffer; i++ {
		r.Broadcast(models.Scope(1), chatEnv(models.Scope(1), "flood"))
		env := <-healthy.Events()
		assert.Equal(t, "flood", env.Body)
	}

	// The overflowing broadcast dropped the slow peer and nobody else.
	assert.Equal(t, 1, r.Count(models.Scope(1)))
	select {
	case <-slow.Done():
	default:
		t.Fatal("slow session not closed")
	}
}

func TestRegistry_EvictClosesScope(t *testing.T) {
	r := NewRegistry()

	a, err := r.Join(models.Scope(7), "alice")
	require.NoError(t, err)
	b, err := r.Join(models.Scope(7), "bob")
	require.NoError(t, err)

	notice := models.Envelope{Type: models.EventEvict, Scope: models.Scope(7), Author: models.SystemHandle}
	evicted := r.Evict(models.Scope(7), notice)
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 0, r.Count(models.Scope(7)))

	// Both sessions saw the terminal notice and are destroyed.
	for _, sess := range []*Session{a, b} {
		env := <-sess.Events()
		assert.Equal(t, models.EventEvict, env.Type)
		select {
		case <-sess.Done():
		default:
			t.Fatal("session not closed after eviction")
		}
	}

	// The scope stays closed: a later join is a stale join.
	_, err = r.Join(models.Scope(7), "late")
	assert.ErrorIs(t, err, models.ErrScopeClosed)
}

func TestRegistry_EvictEmptyScope(t *testing.T) {
	r := NewRegistry()

	notice := models.Envelope{Type: models.EventEvict, Scope: models.Scope(3)}
	assert.Equal(t, 0, r.Evict(models.Scope(3), notice))

	_, err := r.Join(models.Scope(3), "alice")
	assert.ErrorIs(t, err, models.ErrScopeClosed)
}

func TestRegistry_ConcurrentJoinsDoNotClobber(t *testing.T) {
	r := NewRegistry()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := r.Join(models.Scope(1), "member")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, n, r.Count(models.Scope(1)))
}

func TestRegistry_JoinRacingEviction(t *testing.T) {
	// Whatever the interleaving, a joiner either fails with ErrScopeClosed
	// or ends up with a destroyed session; nobody is left attached to a
	// scope that no longer exists.
	for i := 0; i < 20; i++ {
		r := NewRegistry()
		_, err := r.Join(models.Scope(1), "seed")
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		var joined *Session
		var joinErr error
		go func() {
			defer wg.Done()
			joined, joinErr = r.Join(models.Scope(1), "late")
		}()
		go func() {
			defer wg.Done()
			r.Evict(models.Scope(1), models.Envelope{Type: models.EventEvict})
		}()
		wg.Wait()

		if joinErr != nil {
			assert.ErrorIs(t, joinErr, models.ErrScopeClosed)
		} else {
			// Landed before the eviction: must have been evicted with
			// the rest.
			select {
			case <-joined.Done():
			case <-time.After(time.Second):
				t.Fatal("joiner survived eviction")
			}
		}
		assert.Equal(t, 0, r.Count(models.Scope(1)))
	}
}
