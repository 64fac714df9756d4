package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageStatus represents the execution state of a prompt.
// Transitions are monotonic: pending → processing → completed|failed.
type MessageStatus string

const (
	MessagePending    MessageStatus = "pending"
	MessageProcessing MessageStatus = "processing"
	MessageCompleted  MessageStatus = "completed"
	MessageFailed     MessageStatus = "failed"
)

// MessageSource identifies where a prompt was submitted from
type MessageSource string

const (
	SourceWeb     MessageSource = "web"
	SourceAPI     MessageSource = "api"
	SourceSandbox MessageSource = "sandbox"
)

// Message represents one prompt/turn in a session's conversation
type Message struct {
	ID            uuid.UUID     `json:"id"`
	SessionID     uuid.UUID     `json:"session_id"`
	ParticipantID *uuid.UUID    `json:"participant_id,omitempty"`
	Content       string        `json:"content"`
	Source        MessageSource `json:"source"`
	Model         string        `json:"model,omitempty"`
	Attachments   []string      `json:"attachments,omitempty"`
	Status        MessageStatus `json:"status"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// Terminal reports whether the message has reached a final status.
func (m *Message) Terminal() bool {
	return m.Status == MessageCompleted || m.Status == MessageFailed
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	Get(ctx context.Context, id uuid.UUID) (*Message, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]Message, error)
	// Processing returns the message currently claimed by a sandbox,
	// or nil if none is in flight.
	Processing(ctx context.Context, sessionID uuid.UUID) (*Message, error)
	// NextPending returns the oldest pending message, or nil.
	NextPending(ctx context.Context, sessionID uuid.UUID) (*Message, error)
	Update(ctx context.Context, message *Message) error
}
