// Package actor implements the per-session coordinator: one logical,
// serialized execution unit per session id that owns every state
// transition and side-effecting call for that session.
package actor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/calegray/codedock/internal/domain"
	"github.com/calegray/codedock/internal/pipeline"
	"github.com/calegray/codedock/internal/provision"
	"github.com/calegray/codedock/internal/scm"
	"github.com/calegray/codedock/internal/security"
)

// LiveTextCache caches the current rendered text of an in-flight
// message. Optional; a nil cache falls back to the event log.
type LiveTextCache interface {
	Get(ctx context.Context, messageID uuid.UUID) (string, bool, error)
	Set(ctx context.Context, messageID uuid.UUID, text string) error
	Invalidate(ctx context.Context, messageID uuid.UUID) error
}

// Options tune the service. Zero values fall back to defaults.
type Options struct {
	DefaultModel     string
	DefaultBranch    string
	InactivityWindow time.Duration
	SnapshotOnStop   bool
	DefaultPageSize  int
	MaxSessionPage   int
	MaxEventPage     int
	MaxMessagePage   int
}

func (o *Options) setDefaults() {
	if o.DefaultBranch == "" {
		o.DefaultBranch = "main"
	}
	if o.InactivityWindow <= 0 {
		o.InactivityWindow = 30 * time.Minute
	}
	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = 50
	}
	if o.MaxSessionPage <= 0 {
		o.MaxSessionPage = 100
	}
	if o.MaxEventPage <= 0 {
		o.MaxEventPage = 200
	}
	if o.MaxMessagePage <= 0 {
		o.MaxMessagePage = 100
	}
}

// Service routes each operation to the session's actor and executes it
// there. Sessions run independent, concurrent actor instances.
type Service struct {
	store         domain.Store
	provisioner   provision.Provisioner
	scm           scm.Client
	hub           *pipeline.Hub
	encryptor     *security.Encryptor
	sandboxTokens *security.SandboxTokenManager
	liveText      LiveTextCache
	opts          Options

	mu     sync.Mutex
	actors map[uuid.UUID]*state
}

// NewService creates the session actor service.
func NewService(
	store domain.Store,
	provisioner provision.Provisioner,
	scmClient scm.Client,
	hub *pipeline.Hub,
	encryptor *security.Encryptor,
	sandboxTokens *security.SandboxTokenManager,
	liveText LiveTextCache,
	opts Options,
) *Service {
	opts.setDefaults()
	return &Service{
		store:         store,
		provisioner:   provisioner,
		scm:           scmClient,
		hub:           hub,
		encryptor:     encryptor,
		sandboxTokens: sandboxTokens,
		liveText:      liveText,
		opts:          opts,
		actors:        make(map[uuid.UUID]*state),
	}
}

// Hub exposes the viewer push hub for the streaming endpoint.
func (s *Service) Hub() *pipeline.Hub {
	return s.hub
}

// CreateSessionInput carries session creation parameters. UserID, when
// set, registers the creator as the session's owner participant.
type CreateSessionInput struct {
	RepoOwner   string
	RepoName    string
	Title       string
	Model       string
	UserID      string
	GitHubLogin string
	GitHubEmail string
	GitHubName  string
	OAuthToken  string
}

// CreateSession validates and normalizes the repo identity, persists
// the session with status created, and registers the creator as owner.
func (s *Service) CreateSession(ctx context.Context, input CreateSessionInput) (*domain.Session, error) {
	owner, name, err := security.NormalizeRepo(input.RepoOwner, input.RepoName)
	if err != nil {
		return nil, err
	}

	model := input.Model
	if model == "" {
		model = s.opts.DefaultModel
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:            uuid.New(),
		RepoOwner:     owner,
		RepoName:      name,
		Title:         input.Title,
		DefaultBranch: s.opts.DefaultBranch,
		WorkingBranch: workingBranch(now),
		Model:         model,
		Status:        domain.SessionCreated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.store.WithTx(ctx, func(tx domain.Store) error {
		if err := tx.Sessions().Create(ctx, session); err != nil {
			return err
		}
		if input.UserID == "" {
			return nil
		}
		creator := &domain.Participant{
			ID:          uuid.New(),
			SessionID:   session.ID,
			UserID:      input.UserID,
			Role:        domain.RoleOwner,
			GitHubLogin: input.GitHubLogin,
			GitHubEmail: input.GitHubEmail,
			GitHubName:  input.GitHubName,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if input.OAuthToken != "" {
			encrypted, err := s.encryptor.EncryptString(input.OAuthToken)
			if err != nil {
				return err
			}
			creator.EncryptedToken = encrypted
		}
		return tx.Participants().Create(ctx, creator)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("repo", owner+"/"+name).
		Msg("Session created")
	return session, nil
}

// workingBranch derives a per-session branch name from the creation
// time; collisions within the same second are acceptable because the
// branch lives in a per-session sandbox clone.
func workingBranch(t time.Time) string {
	return "codedock/session-" + strings.ToLower(t.Format("20060102-150405"))
}

// SessionState is the full view of one session.
type SessionState struct {
	Session      domain.Session          `json:"session"`
	Participants []domain.Participant    `json:"participants"`
	Sandbox      *domain.SandboxInstance `json:"sandbox,omitempty"`
	Processing   *domain.Message         `json:"processing,omitempty"`
}

// GetSession returns the session and its participants, active sandbox
// and in-flight message, if any.
func (s *Service) GetSession(ctx context.Context, sessionID uuid.UUID) (*SessionState, error) {
	var out *SessionState
	err := s.run(sessionID, func(*state) error {
		session, err := s.store.Sessions().Get(ctx, sessionID)
		if err != nil {
			return err
		}
		participants, err := s.store.Participants().ListBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		sandbox, err := s.store.Sandboxes().ActiveBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		processing, err := s.store.Messages().Processing(ctx, sessionID)
		if err != nil {
			return err
		}
		out = &SessionState{
			Session:      *session,
			Participants: participants,
			Sandbox:      sandbox,
			Processing:   processing,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListSessions pages through sessions newest-first. Cross-session and
// read-only, so it runs outside any actor context.
func (s *Service) ListSessions(ctx context.Context, limit int, cursor string) (*domain.SessionPage, error) {
	limit = pipeline.ClampLimit(limit, s.opts.DefaultPageSize, s.opts.MaxSessionPage)

	c, err := pipeline.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	var afterID uuid.UUID
	if c.ID != "" {
		afterID, err = uuid.Parse(c.ID)
		if err != nil {
			return nil, domain.NewValidationError("cursor", "malformed id")
		}
	}

	// Fetch one extra row to learn whether another page exists.
	sessions, err := s.store.Sessions().List(ctx, c.At, afterID, limit+1)
	if err != nil {
		return nil, err
	}

	page := &domain.SessionPage{}
	if len(sessions) > limit {
		page.HasMore = true
		sessions = sessions[:limit]
	}
	page.Sessions = sessions
	if page.HasMore && len(sessions) > 0 {
		page.Cursor = pipeline.SessionCursor(sessions[len(sessions)-1]).Encode()
	}
	return page, nil
}

// ArchiveSession moves a session to archived, stopping its sandbox.
// Archiving an archived session is a no-op that still succeeds.
func (s *Service) ArchiveSession(ctx context.Context, sessionID uuid.UUID) error {
	return s.run(sessionID, func(a *state) error {
		session, err := s.store.Sessions().Get(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status == domain.SessionArchived {
			return nil
		}

		s.stopActiveSandbox(ctx, sessionID, "archive")

		session.Status = domain.SessionArchived
		session.UpdatedAt = time.Now().UTC()
		return s.store.Sessions().Update(ctx, session)
	})
}

// UnarchiveSession moves an archived session back to active. The
// sandbox is re-provisioned lazily on the next prompt.
func (s *Service) UnarchiveSession(ctx context.Context, sessionID uuid.UUID) error {
	return s.run(sessionID, func(a *state) error {
		session, err := s.store.Sessions().Get(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status != domain.SessionArchived {
			return nil
		}
		session.Status = domain.SessionActive
		session.UpdatedAt = time.Now().UTC()
		return s.store.Sessions().Update(ctx, session)
	})
}

// DeleteSession tears the sandbox down and removes the session and its
// entire history. This is the only path that truncates an event log.
func (s *Service) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	err := s.run(sessionID, func(a *state) error {
		if _, err := s.store.Sessions().Get(ctx, sessionID); err != nil {
			return err
		}
		s.terminateActiveSandbox(ctx, sessionID)
		return s.store.Sessions().Delete(ctx, sessionID)
	})
	if err != nil {
		return err
	}
	s.forget(sessionID)
	return nil
}
