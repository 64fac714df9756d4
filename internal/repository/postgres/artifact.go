package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/calegray/codedock/internal/domain"
)

// ArtifactRepository implements domain.ArtifactRepository. Artifacts
// are write-once.
type ArtifactRepository struct {
	q querier
}

func (r *ArtifactRepository) Create(ctx context.Context, artifact *domain.Artifact) error {
	query := `
		INSERT INTO artifacts (id, session_id, type, url, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.q.Exec(ctx, query,
		artifact.ID,
		artifact.SessionID,
		artifact.Type,
		artifact.URL,
		artifact.Metadata,
		artifact.CreatedAt,
	)
	if err != nil {
		return &domain.StorageError{Op: "create artifact", Err: err}
	}
	return nil
}

func (r *ArtifactRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Artifact, error) {
	query := `
		SELECT id, session_id, type, url, metadata, created_at
		FROM artifacts
		WHERE session_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, &domain.StorageError{Op: "list artifacts", Err: err}
	}
	defer rows.Close()

	var artifacts []domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		if err := rows.Scan(
			&a.ID,
			&a.SessionID,
			&a.Type,
			&a.URL,
			&a.Metadata,
			&a.CreatedAt,
		); err != nil {
			return nil, &domain.StorageError{Op: "scan artifact", Err: err}
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}
