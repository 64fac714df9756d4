package actor

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// state is the in-memory half of one session actor: the lock that
// serializes every operation against the session, and the monotonic
// entropy source that keeps event ids strictly increasing within a
// millisecond. The durable half lives in the store.
type state struct {
	mu      sync.Mutex
	entropy io.Reader
}

// newEventID assigns the next event id. Callers hold the actor lock,
// so the monotonic reader is never shared across goroutines.
func (a *state) newEventID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), a.entropy).String()
}

// actorFor returns the actor state for a session, creating it on first
// use. Actors for different sessions are fully independent.
func (s *Service) actorFor(sessionID uuid.UUID) *state {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actors[sessionID]
	if !ok {
		a = &state{entropy: ulid.Monotonic(rand.Reader, 0)}
		s.actors[sessionID] = a
	}
	return a
}

// run executes op inside the session's exclusive execution context.
// Operations on the same session never interleave; an outstanding
// provisioning call holds the lock and queues everything behind it.
func (s *Service) run(sessionID uuid.UUID, op func(a *state) error) error {
	a := s.actorFor(sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()
	return op(a)
}

// forget drops the in-memory actor after full session deletion.
func (s *Service) forget(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.actors, sessionID)
}
