// Package provision defines the interface to the external sandbox
// provisioning service and an HTTP client implementing it.
package provision

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CreateSandboxRequest carries everything the provisioner needs to
// spawn a sandbox for a session.
type CreateSandboxRequest struct {
	SessionID  uuid.UUID `json:"session_id"`
	RepoURL    string    `json:"repo_url"`
	Branch     string    `json:"branch"`
	AuthToken  string    `json:"auth_token"`
	Model      string    `json:"model,omitempty"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
}

// CreateSandboxResponse is the provisioner's reply to a spawn request.
// TunnelURLs maps container port → public URL and is stored verbatim.
type CreateSandboxResponse struct {
	SandboxID  string            `json:"sandbox_id"`
	ObjectID   string            `json:"object_id,omitempty"`
	Status     string            `json:"status"`
	TunnelURLs map[string]string `json:"tunnel_urls,omitempty"`
}

// SnapshotResponse is the provisioner's reply to a snapshot request.
type SnapshotResponse struct {
	SnapshotID string    `json:"snapshot_id"`
	ImageID    string    `json:"image_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// RestoreResponse is the provisioner's reply to a restore request.
type RestoreResponse struct {
	SandboxID  string            `json:"sandbox_id"`
	Status     string            `json:"status"`
	TunnelURLs map[string]string `json:"tunnel_urls,omitempty"`
}

// PromptRequest is one prompt forwarded to a sandbox's execution
// channel.
type PromptRequest struct {
	MessageID   uuid.UUID `json:"message_id"`
	Content     string    `json:"content"`
	Model       string    `json:"model,omitempty"`
	Attachments []string  `json:"attachments,omitempty"`
}

// Provisioner is the external compute provisioning collaborator.
// Failures are reported as *domain.ProvisionError so the lifecycle
// coordinator can distinguish retryable failures from permanent ones.
type Provisioner interface {
	CreateSandbox(ctx context.Context, req CreateSandboxRequest) (*CreateSandboxResponse, error)
	Snapshot(ctx context.Context, sandboxID, reason string) (*SnapshotResponse, error)
	Restore(ctx context.Context, snapshotID string) (*RestoreResponse, error)
	Terminate(ctx context.Context, sandboxID string) error

	// DispatchPrompt forwards a prompt to the sandbox's execution
	// channel. CancelExecution signals the current execution to stop;
	// both are best-effort from the actor's point of view.
	DispatchPrompt(ctx context.Context, sandboxID string, req PromptRequest) error
	CancelExecution(ctx context.Context, sandboxID string) error
}
