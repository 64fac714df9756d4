package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SandboxStatus represents the state of a sandbox instance
type SandboxStatus string

const (
	SandboxPending  SandboxStatus = "pending"
	SandboxSpawning SandboxStatus = "spawning"
	SandboxReady    SandboxStatus = "ready"
	SandboxIdle     SandboxStatus = "idle"
	SandboxStopped  SandboxStatus = "stopped"
	SandboxFailed   SandboxStatus = "failed"
)

// Active reports whether the status counts against the one-active-instance
// invariant.
func (s SandboxStatus) Active() bool {
	switch s {
	case SandboxPending, SandboxSpawning, SandboxReady, SandboxIdle:
		return true
	}
	return false
}

// GitSyncStatus tracks whether the sandbox working tree has been pushed.
// It advances independently of the instance status.
type GitSyncStatus string

const (
	GitSyncPending GitSyncStatus = "pending"
	GitSyncSyncing GitSyncStatus = "syncing"
	GitSyncSynced  GitSyncStatus = "synced"
	GitSyncFailed  GitSyncStatus = "failed"
)

// SandboxInstance represents the ephemeral compute backing a session.
// At most one instance per session is active at a time; creating a new
// one retires the previous instance.
type SandboxInstance struct {
	ID               uuid.UUID         `json:"id"`
	SessionID        uuid.UUID         `json:"session_id"`
	ExternalID       string            `json:"external_id"`
	ExternalObjectID string            `json:"external_object_id,omitempty"`
	SnapshotID       string            `json:"snapshot_id,omitempty"`
	ImageID          string            `json:"image_id,omitempty"`
	AuthToken        string            `json:"-"`
	Status           SandboxStatus     `json:"status"`
	GitSyncStatus    GitSyncStatus     `json:"git_sync_status"`
	LastHeartbeatAt  *time.Time        `json:"last_heartbeat_at,omitempty"`
	LastActivityAt   *time.Time        `json:"last_activity_at,omitempty"`
	TunnelURLs       map[string]string `json:"tunnel_urls,omitempty"` // container port → public URL
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// SandboxRepository defines the interface for sandbox instance storage
type SandboxRepository interface {
	Create(ctx context.Context, instance *SandboxInstance) error
	Get(ctx context.Context, id uuid.UUID) (*SandboxInstance, error)
	// ActiveBySession returns the session's active instance, or nil.
	ActiveBySession(ctx context.Context, sessionID uuid.UUID) (*SandboxInstance, error)
	// LatestBySession returns the most recently created instance
	// regardless of status, or nil. Used for snapshot restore.
	LatestBySession(ctx context.Context, sessionID uuid.UUID) (*SandboxInstance, error)
	Update(ctx context.Context, instance *SandboxInstance) error
}
