package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/calegray/codedock/internal/domain"
)

// SandboxRepository implements domain.SandboxRepository
type SandboxRepository struct {
	q querier
}

const sandboxColumns = `id, session_id, external_id, external_object_id, snapshot_id, image_id,
	auth_token, status, git_sync_status, last_heartbeat_at, last_activity_at, tunnel_urls,
	created_at, updated_at`

func scanSandbox(row pgx.Row, sb *domain.SandboxInstance) error {
	return row.Scan(
		&sb.ID,
		&sb.SessionID,
		&sb.ExternalID,
		&sb.ExternalObjectID,
		&sb.SnapshotID,
		&sb.ImageID,
		&sb.AuthToken,
		&sb.Status,
		&sb.GitSyncStatus,
		&sb.LastHeartbeatAt,
		&sb.LastActivityAt,
		&sb.TunnelURLs,
		&sb.CreatedAt,
		&sb.UpdatedAt,
	)
}

func (r *SandboxRepository) Create(ctx context.Context, instance *domain.SandboxInstance) error {
	query := `
		INSERT INTO sandboxes (id, session_id, external_id, external_object_id, snapshot_id,
			image_id, auth_token, status, git_sync_status, last_heartbeat_at, last_activity_at,
			tunnel_urls, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.q.Exec(ctx, query,
		instance.ID,
		instance.SessionID,
		instance.ExternalID,
		instance.ExternalObjectID,
		instance.SnapshotID,
		instance.ImageID,
		instance.AuthToken,
		instance.Status,
		instance.GitSyncStatus,
		instance.LastHeartbeatAt,
		instance.LastActivityAt,
		instance.TunnelURLs,
		instance.CreatedAt,
		instance.UpdatedAt,
	)
	if err != nil {
		return &domain.StorageError{Op: "create sandbox", Err: err}
	}
	return nil
}

func (r *SandboxRepository) Get(ctx context.Context, id uuid.UUID) (*domain.SandboxInstance, error) {
	query := `SELECT ` + sandboxColumns + ` FROM sandboxes WHERE id = $1`
	var sb domain.SandboxInstance
	if err := scanSandbox(r.q.QueryRow(ctx, query, id), &sb); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StorageError{Op: "get sandbox", Err: err}
	}
	return &sb, nil
}

func (r *SandboxRepository) ActiveBySession(ctx context.Context, sessionID uuid.UUID) (*domain.SandboxInstance, error) {
	query := `
		SELECT ` + sandboxColumns + `
		FROM sandboxes
		WHERE session_id = $1 AND status IN ('pending', 'spawning', 'ready', 'idle')
		ORDER BY created_at DESC
		LIMIT 1
	`
	var sb domain.SandboxInstance
	if err := scanSandbox(r.q.QueryRow(ctx, query, sessionID), &sb); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &domain.StorageError{Op: "get active sandbox", Err: err}
	}
	return &sb, nil
}

func (r *SandboxRepository) LatestBySession(ctx context.Context, sessionID uuid.UUID) (*domain.SandboxInstance, error) {
	query := `
		SELECT ` + sandboxColumns + `
		FROM sandboxes
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var sb domain.SandboxInstance
	if err := scanSandbox(r.q.QueryRow(ctx, query, sessionID), &sb); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &domain.StorageError{Op: "get latest sandbox", Err: err}
	}
	return &sb, nil
}

func (r *SandboxRepository) Update(ctx context.Context, instance *domain.SandboxInstance) error {
	query := `
		UPDATE sandboxes
		SET external_id = $1, external_object_id = $2, snapshot_id = $3, image_id = $4,
			status = $5, git_sync_status = $6, last_heartbeat_at = $7, last_activity_at = $8,
			tunnel_urls = $9, updated_at = $10
		WHERE id = $11
	`
	tag, err := r.q.Exec(ctx, query,
		instance.ExternalID,
		instance.ExternalObjectID,
		instance.SnapshotID,
		instance.ImageID,
		instance.Status,
		instance.GitSyncStatus,
		instance.LastHeartbeatAt,
		instance.LastActivityAt,
		instance.TunnelURLs,
		instance.UpdatedAt,
		instance.ID,
	)
	if err != nil {
		return &domain.StorageError{Op: "update sandbox", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
