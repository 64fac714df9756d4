package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/calegray/codedock/internal/domain"
)

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	q querier
}

const messageColumns = `id, session_id, participant_id, content, source, model, attachments,
	status, error_message, created_at, updated_at, started_at, completed_at`

func scanMessage(row pgx.Row, m *domain.Message) error {
	return row.Scan(
		&m.ID,
		&m.SessionID,
		&m.ParticipantID,
		&m.Content,
		&m.Source,
		&m.Model,
		&m.Attachments,
		&m.Status,
		&m.ErrorMessage,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.StartedAt,
		&m.CompletedAt,
	)
}

func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (id, session_id, participant_id, content, source, model, attachments,
			status, error_message, created_at, updated_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.q.Exec(ctx, query,
		message.ID,
		message.SessionID,
		message.ParticipantID,
		message.Content,
		message.Source,
		message.Model,
		message.Attachments,
		message.Status,
		message.ErrorMessage,
		message.CreatedAt,
		message.UpdatedAt,
		message.StartedAt,
		message.CompletedAt,
	)
	if err != nil {
		return &domain.StorageError{Op: "create message", Err: err}
	}
	return nil
}

func (r *MessageRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	var m domain.Message
	if err := scanMessage(r.q.QueryRow(ctx, query, id), &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StorageError{Op: "get message", Err: err}
	}
	return &m, nil
}

func (r *MessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, &domain.StorageError{Op: "list messages", Err: err}
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, &domain.StorageError{Op: "scan message", Err: err}
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list messages", Err: err}
	}

	// Reverse to return chronological order (oldest first) because the
	// query orders DESC to pick the latest N.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MessageRepository) Processing(ctx context.Context, sessionID uuid.UUID) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE session_id = $1 AND status = 'processing' LIMIT 1`
	var m domain.Message
	if err := scanMessage(r.q.QueryRow(ctx, query, sessionID), &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &domain.StorageError{Op: "get processing message", Err: err}
	}
	return &m, nil
}

func (r *MessageRepository) NextPending(ctx context.Context, sessionID uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE session_id = $1 AND status = 'pending'
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`
	var m domain.Message
	if err := scanMessage(r.q.QueryRow(ctx, query, sessionID), &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &domain.StorageError{Op: "get next pending message", Err: err}
	}
	return &m, nil
}

func (r *MessageRepository) Update(ctx context.Context, message *domain.Message) error {
	query := `
		UPDATE messages
		SET status = $1, error_message = $2, updated_at = $3, started_at = $4, completed_at = $5
		WHERE id = $6
	`
	tag, err := r.q.Exec(ctx, query,
		message.Status,
		message.ErrorMessage,
		message.UpdatedAt,
		message.StartedAt,
		message.CompletedAt,
		message.ID,
	)
	if err != nil {
		return &domain.StorageError{Op: "update message", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
