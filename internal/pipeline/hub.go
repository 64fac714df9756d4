package pipeline

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/calegray/codedock/internal/domain"
)

// subscriberBuffer bounds how far a viewer may lag before it is
// disconnected and must resume from its cursor.
const subscriberBuffer = 256

// Hub fans newly recorded events out to attached viewers, per session,
// in append order. Viewers are stateless across reconnects: a dropped
// or disconnected viewer resumes by re-listing from its last cursor.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[uuid.UUID]map[int]chan domain.Event
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[int]chan domain.Event)}
}

// Subscribe attaches a viewer to a session's live feed. The returned
// cancel func detaches it and closes the channel.
func (h *Hub) Subscribe(sessionID uuid.UUID) (<-chan domain.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan domain.Event, subscriberBuffer)

	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[int]chan domain.Event)
	}
	h.subs[sessionID][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sessionSubs, ok := h.subs[sessionID]; ok {
			if c, ok := sessionSubs[id]; ok {
				delete(sessionSubs, id)
				close(c)
			}
			if len(sessionSubs) == 0 {
				delete(h.subs, sessionID)
			}
		}
	}

	return ch, cancel
}

// Publish forwards an event to every viewer of its session. A viewer
// whose buffer is full is disconnected rather than blocking the actor;
// it re-syncs from its cursor on reconnect.
func (h *Hub) Publish(event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionSubs := h.subs[event.SessionID]
	for id, ch := range sessionSubs {
		select {
		case ch <- event:
		default:
			log.Warn().
				Str("session_id", event.SessionID.String()).
				Int("subscriber", id).
				Msg("Dropping slow viewer")
			delete(sessionSubs, id)
			close(ch)
		}
	}
	if len(sessionSubs) == 0 {
		delete(h.subs, event.SessionID)
	}
}

// Viewers returns the number of viewers attached to a session.
func (h *Hub) Viewers(sessionID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}
