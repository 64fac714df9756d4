package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ParticipantRole represents a participant's role within a session
type ParticipantRole string

const (
	RoleOwner  ParticipantRole = "owner"
	RoleMember ParticipantRole = "member"
)

// Participant represents a human or service joined to a session.
// OAuth credentials are stored encrypted; the plaintext never leaves
// the security package except transiently for an outbound call.
type Participant struct {
	ID              uuid.UUID       `json:"id"`
	SessionID       uuid.UUID       `json:"session_id"`
	UserID          string          `json:"user_id"`
	Role            ParticipantRole `json:"role"`
	GitHubLogin     string          `json:"github_login,omitempty"`
	GitHubEmail     string          `json:"github_email,omitempty"`
	GitHubName      string          `json:"github_name,omitempty"`
	EncryptedToken  string          `json:"-"`
	TokenExpiresAt  *time.Time      `json:"token_expires_at,omitempty"`
	ViewerAuthToken string          `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ParticipantUpdate carries the mutable fields of a participant.
// Nil fields are left unchanged.
type ParticipantUpdate struct {
	Role           *ParticipantRole `json:"role,omitempty"`
	GitHubLogin    *string          `json:"github_login,omitempty"`
	GitHubEmail    *string          `json:"github_email,omitempty"`
	GitHubName     *string          `json:"github_name,omitempty"`
	EncryptedToken *string          `json:"-"`
	TokenExpiresAt *time.Time       `json:"token_expires_at,omitempty"`
}

// ParticipantRepository defines the interface for participant storage
type ParticipantRepository interface {
	Create(ctx context.Context, participant *Participant) error
	Get(ctx context.Context, id uuid.UUID) (*Participant, error)
	GetByUserID(ctx context.Context, sessionID uuid.UUID, userID string) (*Participant, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]Participant, error)
	Update(ctx context.Context, participant *Participant) error
}
