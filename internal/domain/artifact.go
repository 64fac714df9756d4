package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ArtifactType classifies a durable session output
type ArtifactType string

const (
	ArtifactPR         ArtifactType = "pr"
	ArtifactBranch     ArtifactType = "branch"
	ArtifactScreenshot ArtifactType = "screenshot"
	ArtifactPreview    ArtifactType = "preview"
)

// Artifact is a durable output reference produced by a session.
// Artifacts are never mutated, only superseded by newer ones.
type Artifact struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	Type      ArtifactType    `json:"type"`
	URL       string          `json:"url"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ArtifactRepository defines the interface for artifact storage
type ArtifactRepository interface {
	Create(ctx context.Context, artifact *Artifact) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]Artifact, error)
}
