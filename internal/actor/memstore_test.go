package actor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calegray/codedock/internal/domain"
)

// memStore is an in-memory domain.Store used to exercise actor logic
// without a database. WithTx applies fn directly; transactionality is
// covered by the postgres layer, the actor tests target ordering and
// state machine behavior.
type memStore struct {
	mu           sync.Mutex
	sessions     map[uuid.UUID]*domain.Session
	participants map[uuid.UUID]*domain.Participant
	messages     map[uuid.UUID]*domain.Message
	sandboxes    map[uuid.UUID]*domain.SandboxInstance
	events       []*domain.Event
	artifacts    []*domain.Artifact
}

func newMemStore() *memStore {
	return &memStore{
		sessions:     make(map[uuid.UUID]*domain.Session),
		participants: make(map[uuid.UUID]*domain.Participant),
		messages:     make(map[uuid.UUID]*domain.Message),
		sandboxes:    make(map[uuid.UUID]*domain.SandboxInstance),
	}
}

func (m *memStore) Sessions() domain.SessionRepository         { return (*memSessions)(m) }
func (m *memStore) Participants() domain.ParticipantRepository { return (*memParticipants)(m) }
func (m *memStore) Messages() domain.MessageRepository         { return (*memMessages)(m) }
func (m *memStore) Sandboxes() domain.SandboxRepository        { return (*memSandboxes)(m) }
func (m *memStore) Events() domain.EventRepository             { return (*memEvents)(m) }
func (m *memStore) Artifacts() domain.ArtifactRepository       { return (*memArtifacts)(m) }

func (m *memStore) WithTx(ctx context.Context, fn func(domain.Store) error) error {
	return fn(m)
}

type memSessions memStore

func (m *memSessions) Create(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessions) Get(_ context.Context, id uuid.UUID) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) List(_ context.Context, after time.Time, afterID uuid.UUID, limit int) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Session
	for _, s := range m.sessions {
		if s.Status == domain.SessionDeleted {
			continue
		}
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() > all[j].ID.String()
	})
	var out []domain.Session
	for _, s := range all {
		if !after.IsZero() {
			// Cursors carry microsecond precision, like the database.
			at := s.CreatedAt.Truncate(time.Microsecond)
			if at.After(after) || (at.Equal(after) && s.ID.String() >= afterID.String()) {
				continue
			}
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memSessions) Update(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessions) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

type memParticipants memStore

func (m *memParticipants) Create(_ context.Context, p *domain.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.participants[p.ID] = &cp
	return nil
}

func (m *memParticipants) Get(_ context.Context, id uuid.UUID) (*domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memParticipants) GetByUserID(_ context.Context, sessionID uuid.UUID, userID string) (*domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.participants {
		if p.SessionID == sessionID && p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memParticipants) ListBySession(_ context.Context, sessionID uuid.UUID) ([]domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Participant
	for _, p := range m.participants {
		if p.SessionID == sessionID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memParticipants) Update(_ context.Context, p *domain.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.participants[p.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *p
	m.participants[p.ID] = &cp
	return nil
}

type memMessages memStore

func (m *memMessages) Create(_ context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

func (m *memMessages) Get(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (m *memMessages) ListBySession(_ context.Context, sessionID uuid.UUID, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memMessages) Processing(_ context.Context, sessionID uuid.UUID) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.SessionID == sessionID && msg.Status == domain.MessageProcessing {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memMessages) NextPending(_ context.Context, sessionID uuid.UUID) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*domain.Message
	for _, msg := range m.messages {
		if msg.SessionID == sessionID && msg.Status == domain.MessagePending {
			pending = append(pending, msg)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID.String() < pending[j].ID.String()
	})
	cp := *pending[0]
	return &cp, nil
}

func (m *memMessages) Update(_ context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[msg.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

type memSandboxes memStore

func (m *memSandboxes) Create(_ context.Context, sb *domain.SandboxInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sb
	m.sandboxes[sb.ID] = &cp
	return nil
}

func (m *memSandboxes) Get(_ context.Context, id uuid.UUID) (*domain.SandboxInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sb, ok := m.sandboxes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *sb
	return &cp, nil
}

func (m *memSandboxes) ActiveBySession(_ context.Context, sessionID uuid.UUID) (*domain.SandboxInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.SandboxInstance
	for _, sb := range m.sandboxes {
		if sb.SessionID != sessionID || !sb.Status.Active() {
			continue
		}
		if latest == nil || sb.CreatedAt.After(latest.CreatedAt) {
			latest = sb
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memSandboxes) LatestBySession(_ context.Context, sessionID uuid.UUID) (*domain.SandboxInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.SandboxInstance
	for _, sb := range m.sandboxes {
		if sb.SessionID != sessionID {
			continue
		}
		if latest == nil || sb.CreatedAt.After(latest.CreatedAt) {
			latest = sb
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memSandboxes) Update(_ context.Context, sb *domain.SandboxInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sandboxes[sb.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *sb
	m.sandboxes[sb.ID] = &cp
	return nil
}

type memEvents memStore

func (m *memEvents) Append(_ context.Context, e *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.events = append(m.events, &cp)
	return nil
}

func (m *memEvents) List(_ context.Context, sessionID uuid.UUID, messageID *uuid.UUID, after time.Time, afterID string, limit int) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Event
	for _, e := range m.events {
		if e.SessionID != sessionID {
			continue
		}
		if messageID != nil && (e.MessageID == nil || *e.MessageID != *messageID) {
			continue
		}
		all = append(all, *e)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	var out []domain.Event
	for _, e := range all {
		if !after.IsZero() {
			at := e.CreatedAt.Truncate(time.Microsecond)
			if at.Before(after) || (at.Equal(after) && e.ID <= afterID) {
				continue
			}
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memEvents) LastToken(_ context.Context, messageID uuid.UUID) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *domain.Event
	for _, e := range m.events {
		if e.Type != domain.EventToken || e.MessageID == nil || *e.MessageID != messageID {
			continue
		}
		if last == nil || e.CreatedAt.After(last.CreatedAt) || (e.CreatedAt.Equal(last.CreatedAt) && e.ID > last.ID) {
			last = e
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

type memArtifacts memStore

func (m *memArtifacts) Create(_ context.Context, a *domain.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.artifacts = append(m.artifacts, &cp)
	return nil
}

func (m *memArtifacts) ListBySession(_ context.Context, sessionID uuid.UUID) ([]domain.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Artifact
	for _, a := range m.artifacts {
		if a.SessionID == sessionID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
