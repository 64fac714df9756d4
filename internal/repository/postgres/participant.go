package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/calegray/codedock/internal/domain"
)

// ParticipantRepository implements domain.ParticipantRepository
type ParticipantRepository struct {
	q querier
}

const participantColumns = `id, session_id, user_id, role, github_login, github_email, github_name,
	encrypted_token, token_expires_at, viewer_auth_token, created_at, updated_at`

func scanParticipant(row pgx.Row, p *domain.Participant) error {
	return row.Scan(
		&p.ID,
		&p.SessionID,
		&p.UserID,
		&p.Role,
		&p.GitHubLogin,
		&p.GitHubEmail,
		&p.GitHubName,
		&p.EncryptedToken,
		&p.TokenExpiresAt,
		&p.ViewerAuthToken,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func (r *ParticipantRepository) Create(ctx context.Context, participant *domain.Participant) error {
	query := `
		INSERT INTO participants (id, session_id, user_id, role, github_login, github_email,
			github_name, encrypted_token, token_expires_at, viewer_auth_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.q.Exec(ctx, query,
		participant.ID,
		participant.SessionID,
		participant.UserID,
		participant.Role,
		participant.GitHubLogin,
		participant.GitHubEmail,
		participant.GitHubName,
		participant.EncryptedToken,
		participant.TokenExpiresAt,
		participant.ViewerAuthToken,
		participant.CreatedAt,
		participant.UpdatedAt,
	)
	if err != nil {
		return &domain.StorageError{Op: "create participant", Err: err}
	}
	return nil
}

func (r *ParticipantRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	var p domain.Participant
	if err := scanParticipant(r.q.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StorageError{Op: "get participant", Err: err}
	}
	return &p, nil
}

func (r *ParticipantRepository) GetByUserID(ctx context.Context, sessionID uuid.UUID, userID string) (*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE session_id = $1 AND user_id = $2`
	var p domain.Participant
	if err := scanParticipant(r.q.QueryRow(ctx, query, sessionID, userID), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StorageError{Op: "get participant by user", Err: err}
	}
	return &p, nil
}

func (r *ParticipantRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE session_id = $1 ORDER BY created_at ASC`
	rows, err := r.q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, &domain.StorageError{Op: "list participants", Err: err}
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := scanParticipant(rows, &p); err != nil {
			return nil, &domain.StorageError{Op: "scan participant", Err: err}
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *ParticipantRepository) Update(ctx context.Context, participant *domain.Participant) error {
	query := `
		UPDATE participants
		SET role = $1, github_login = $2, github_email = $3, github_name = $4,
			encrypted_token = $5, token_expires_at = $6, viewer_auth_token = $7, updated_at = $8
		WHERE id = $9
	`
	tag, err := r.q.Exec(ctx, query,
		participant.Role,
		participant.GitHubLogin,
		participant.GitHubEmail,
		participant.GitHubName,
		participant.EncryptedToken,
		participant.TokenExpiresAt,
		participant.ViewerAuthToken,
		participant.UpdatedAt,
		participant.ID,
	)
	if err != nil {
		return &domain.StorageError{Op: "update participant", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
