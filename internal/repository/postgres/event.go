package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/calegray/codedock/internal/domain"
)

// EventRepository implements domain.EventRepository. The event log is
// append-only; there is no update or delete path short of deleting the
// whole session.
type EventRepository struct {
	q querier
}

func (r *EventRepository) Append(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (id, session_id, message_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.q.Exec(ctx, query,
		event.ID,
		event.SessionID,
		event.MessageID,
		event.Type,
		event.Payload,
		event.CreatedAt,
	)
	if err != nil {
		return &domain.StorageError{Op: "append event", Err: err}
	}
	return nil
}

func (r *EventRepository) List(ctx context.Context, sessionID uuid.UUID, messageID *uuid.UUID, after time.Time, afterID string, limit int) ([]domain.Event, error) {
	// Keyset pagination ascending on the (created_at, id) total order.
	query := `
		SELECT id, session_id, message_id, type, payload, created_at
		FROM events
		WHERE session_id = $1
		  AND ($2::uuid IS NULL OR message_id = $2)
		  AND ($3::timestamptz IS NULL OR (created_at, id) > ($3::timestamptz, $4::text))
		ORDER BY created_at ASC, id ASC
		LIMIT $5
	`
	var afterArg any
	var afterIDArg any
	if !after.IsZero() {
		afterArg = after
		afterIDArg = afterID
	}

	rows, err := r.q.Query(ctx, query, sessionID, messageID, afterArg, afterIDArg, limit)
	if err != nil {
		return nil, &domain.StorageError{Op: "list events", Err: err}
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(
			&e.ID,
			&e.SessionID,
			&e.MessageID,
			&e.Type,
			&e.Payload,
			&e.CreatedAt,
		); err != nil {
			return nil, &domain.StorageError{Op: "scan event", Err: err}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *EventRepository) LastToken(ctx context.Context, messageID uuid.UUID) (*domain.Event, error) {
	query := `
		SELECT id, session_id, message_id, type, payload, created_at
		FROM events
		WHERE message_id = $1 AND type = 'token'
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var e domain.Event
	err := r.q.QueryRow(ctx, query, messageID).Scan(
		&e.ID,
		&e.SessionID,
		&e.MessageID,
		&e.Type,
		&e.Payload,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &domain.StorageError{Op: "get last token event", Err: err}
	}
	return &e, nil
}
