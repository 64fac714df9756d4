package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType classifies one fact in the session history
type EventType string

const (
	EventToken             EventType = "token"
	EventToolCall          EventType = "tool_call"
	EventToolResult        EventType = "tool_result"
	EventExecutionComplete EventType = "execution_complete"
	EventGitSync           EventType = "git_sync"
	EventSystem            EventType = "system"
)

// Event is one append-only fact in a session's history. IDs are ULIDs,
// so the (created_at, id) sort key is deterministic even for events
// created within the same millisecond.
type Event struct {
	ID        string          `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	MessageID *uuid.UUID      `json:"message_id,omitempty"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ExecutionCompletePayload is the decoded payload of an
// execution_complete event.
type ExecutionCompletePayload struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// TokenPayload is the decoded payload of a token event. Token events
// are cumulative: each carries the full rendered text so far, and the
// last one recorded for a message is the current text.
type TokenPayload struct {
	Text string `json:"text"`
}

// EventPage is one page of a cursor-paginated event listing
type EventPage struct {
	Events  []Event `json:"events"`
	HasMore bool    `json:"has_more"`
	Cursor  string  `json:"cursor,omitempty"`
}

// EventRepository defines the interface for the append-only event log
type EventRepository interface {
	Append(ctx context.Context, event *Event) error
	// List returns events in ascending (created_at, id) order, strictly
	// after the given key. A zero after time starts from the beginning.
	// messageID narrows the listing to one message when non-nil.
	List(ctx context.Context, sessionID uuid.UUID, messageID *uuid.UUID, after time.Time, afterID string, limit int) ([]Event, error)
	// LastToken returns the most recent token event for a message, or nil.
	LastToken(ctx context.Context, messageID uuid.UUID) (*Event, error)
}
