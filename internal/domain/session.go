package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a session
type SessionStatus string

const (
	SessionCreated  SessionStatus = "created"
	SessionActive   SessionStatus = "active"
	SessionArchived SessionStatus = "archived"
	SessionDeleted  SessionStatus = "deleted"
)

// Session represents one sandbox-backed collaboration instance.
// Repo identity is immutable after creation and stored lowercase.
type Session struct {
	ID            uuid.UUID     `json:"id"`
	RepoOwner     string        `json:"repo_owner"`
	RepoName      string        `json:"repo_name"`
	Title         string        `json:"title"`
	DefaultBranch string        `json:"default_branch"`
	WorkingBranch string        `json:"working_branch"`
	BaseCommitSHA string        `json:"base_commit_sha,omitempty"`
	HeadCommitSHA string        `json:"head_commit_sha,omitempty"`
	Model         string        `json:"model"`
	Status        SessionStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// RepoURL returns the clone URL for the session's repository.
func (s *Session) RepoURL() string {
	return "https://github.com/" + s.RepoOwner + "/" + s.RepoName + ".git"
}

// SessionPage is one page of a cursor-paginated session listing
type SessionPage struct {
	Sessions []Session `json:"sessions"`
	HasMore  bool      `json:"has_more"`
	Cursor   string    `json:"cursor,omitempty"`
}

// SessionRepository defines the interface for session storage
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	// List returns sessions ordered by creation time descending. The
	// after key is (createdAt, id) of the last row of the prior page;
	// a zero createdAt means start from the newest.
	List(ctx context.Context, after time.Time, afterID uuid.UUID, limit int) ([]Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}
