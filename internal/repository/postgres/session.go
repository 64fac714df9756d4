package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/calegray/codedock/internal/domain"
)

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	q querier
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, repo_owner, repo_name, title, default_branch, working_branch,
			base_commit_sha, head_commit_sha, model, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.q.Exec(ctx, query,
		session.ID,
		session.RepoOwner,
		session.RepoName,
		session.Title,
		session.DefaultBranch,
		session.WorkingBranch,
		session.BaseCommitSHA,
		session.HeadCommitSHA,
		session.Model,
		session.Status,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return &domain.StorageError{Op: "create session", Err: err}
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := `
		SELECT id, repo_owner, repo_name, title, default_branch, working_branch,
			base_commit_sha, head_commit_sha, model, status, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`
	var s domain.Session
	err := r.q.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.RepoOwner,
		&s.RepoName,
		&s.Title,
		&s.DefaultBranch,
		&s.WorkingBranch,
		&s.BaseCommitSHA,
		&s.HeadCommitSHA,
		&s.Model,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StorageError{Op: "get session", Err: err}
	}
	return &s, nil
}

func (r *SessionRepository) List(ctx context.Context, after time.Time, afterID uuid.UUID, limit int) ([]domain.Session, error) {
	// Keyset pagination on (created_at, id) descending. The secondary
	// ordering index makes this stable under concurrent inserts.
	query := `
		SELECT id, repo_owner, repo_name, title, default_branch, working_branch,
			base_commit_sha, head_commit_sha, model, status, created_at, updated_at
		FROM sessions
		WHERE status <> 'deleted'
		  AND ($1::timestamptz IS NULL OR (created_at, id) < ($1::timestamptz, $2::uuid))
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	var afterArg any
	var afterIDArg any
	if !after.IsZero() {
		afterArg = after
		afterIDArg = afterID
	}

	rows, err := r.q.Query(ctx, query, afterArg, afterIDArg, limit)
	if err != nil {
		return nil, &domain.StorageError{Op: "list sessions", Err: err}
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(
			&s.ID,
			&s.RepoOwner,
			&s.RepoName,
			&s.Title,
			&s.DefaultBranch,
			&s.WorkingBranch,
			&s.BaseCommitSHA,
			&s.HeadCommitSHA,
			&s.Model,
			&s.Status,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, &domain.StorageError{Op: "scan session", Err: err}
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) Update(ctx context.Context, session *domain.Session) error {
	query := `
		UPDATE sessions
		SET title = $1, default_branch = $2, working_branch = $3, base_commit_sha = $4,
			head_commit_sha = $5, model = $6, status = $7, updated_at = $8
		WHERE id = $9
	`
	tag, err := r.q.Exec(ctx, query,
		session.Title,
		session.DefaultBranch,
		session.WorkingBranch,
		session.BaseCommitSHA,
		session.HeadCommitSHA,
		session.Model,
		session.Status,
		session.UpdatedAt,
		session.ID,
	)
	if err != nil {
		return &domain.StorageError{Op: "update session", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Full deletion removes the session row; dependent rows cascade.
	tag, err := r.q.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return &domain.StorageError{Op: "delete session", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
