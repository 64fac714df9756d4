package actor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/calegray/codedock/internal/domain"
	"github.com/calegray/codedock/internal/pipeline"
)

// EventInput is one fact pushed by the sandbox.
type EventInput struct {
	Type      domain.EventType
	MessageID *uuid.UUID
	Payload   json.RawMessage
}

// RecordSandboxEvent appends one event to the session history, applies
// its side effects (message status transitions, git-sync updates,
// queued prompt dispatch) and forwards it to live viewers in append
// order.
func (s *Service) RecordSandboxEvent(ctx context.Context, sessionID uuid.UUID, input EventInput) (*domain.Event, error) {
	if input.Type == "" {
		return nil, domain.NewValidationError("type", "must not be empty")
	}

	var event *domain.Event
	err := s.run(sessionID, func(a *state) error {
		if _, err := s.store.Sessions().Get(ctx, sessionID); err != nil {
			return err
		}

		now := time.Now().UTC()
		event = &domain.Event{
			ID:        a.newEventID(now),
			SessionID: sessionID,
			MessageID: input.MessageID,
			Type:      input.Type,
			Payload:   input.Payload,
			CreatedAt: now,
		}

		var next *domain.Message
		err := s.store.WithTx(ctx, func(tx domain.Store) error {
			if err := tx.Events().Append(ctx, event); err != nil {
				return err
			}

			if instance, err := tx.Sandboxes().ActiveBySession(ctx, sessionID); err != nil {
				return err
			} else if instance != nil {
				if instance.Status == domain.SandboxSpawning || instance.Status == domain.SandboxIdle {
					instance.Status = domain.SandboxReady
				}
				s.touch(instance)
				if err := tx.Sandboxes().Update(ctx, instance); err != nil {
					return err
				}
			}

			switch input.Type {
			case domain.EventExecutionComplete:
				var err error
				next, err = s.completeMessage(ctx, tx, event, now)
				if err != nil {
					return err
				}
			case domain.EventGitSync:
				if err := s.applyGitSync(ctx, tx, sessionID, event); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		if input.Type == domain.EventToken && input.MessageID != nil && s.liveText != nil {
			var payload domain.TokenPayload
			if err := json.Unmarshal(input.Payload, &payload); err == nil {
				if err := s.liveText.Set(ctx, *input.MessageID, payload.Text); err != nil {
					log.Warn().Err(err).Msg("Live text cache update failed")
				}
			}
		}

		s.hub.Publish(*event)

		// A resolved message frees the execution slot: dispatch the
		// oldest queued prompt, if any.
		if next != nil {
			instance, err := s.store.Sandboxes().ActiveBySession(ctx, sessionID)
			if err == nil && instance != nil {
				s.dispatch(ctx, instance, next)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// completeMessage moves the event's message to its terminal status and
// claims the next pending message, returning it for dispatch after
// commit.
func (s *Service) completeMessage(ctx context.Context, tx domain.Store, event *domain.Event, now time.Time) (*domain.Message, error) {
	if event.MessageID == nil {
		return nil, nil
	}

	message, err := tx.Messages().Get(ctx, *event.MessageID)
	if err != nil {
		return nil, err
	}
	if message.SessionID != event.SessionID {
		return nil, domain.NewValidationError("message_id", "message belongs to another session")
	}
	if message.Terminal() {
		// Stop already resolved it; the completion event stays in the
		// log but must not resurrect the message.
		return nil, nil
	}

	var payload domain.ExecutionCompletePayload
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, domain.NewValidationError("payload", "malformed execution_complete payload")
		}
	}

	if payload.Success {
		message.Status = domain.MessageCompleted
	} else {
		message.Status = domain.MessageFailed
		message.ErrorMessage = payload.ErrorMessage
	}
	message.UpdatedAt = now
	message.CompletedAt = &now
	if err := tx.Messages().Update(ctx, message); err != nil {
		return nil, err
	}

	if s.liveText != nil {
		_ = s.liveText.Invalidate(ctx, message.ID)
	}

	next, err := tx.Messages().NextPending(ctx, event.SessionID)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, nil
	}
	next.Status = domain.MessageProcessing
	next.StartedAt = &now
	next.UpdatedAt = now
	if err := tx.Messages().Update(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// applyGitSync updates the sandbox's parallel git-sync state machine.
// A synced push may carry the new head commit of the working branch.
func (s *Service) applyGitSync(ctx context.Context, tx domain.Store, sessionID uuid.UUID, event *domain.Event) error {
	var payload struct {
		Status        domain.GitSyncStatus `json:"status"`
		HeadCommitSHA string               `json:"head_commit_sha"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return domain.NewValidationError("payload", "malformed git_sync payload")
	}
	switch payload.Status {
	case domain.GitSyncPending, domain.GitSyncSyncing, domain.GitSyncSynced, domain.GitSyncFailed:
	default:
		return domain.NewValidationError("payload", "unknown git_sync status")
	}

	if payload.Status == domain.GitSyncSynced && payload.HeadCommitSHA != "" {
		session, err := tx.Sessions().Get(ctx, sessionID)
		if err != nil {
			return err
		}
		session.HeadCommitSHA = payload.HeadCommitSHA
		session.UpdatedAt = event.CreatedAt
		if err := tx.Sessions().Update(ctx, session); err != nil {
			return err
		}
	}

	instance, err := tx.Sandboxes().ActiveBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	if instance == nil {
		return nil
	}
	instance.GitSyncStatus = payload.Status
	instance.UpdatedAt = event.CreatedAt
	return tx.Sandboxes().Update(ctx, instance)
}

// ListEventsInput narrows and pages an event listing.
type ListEventsInput struct {
	MessageID *uuid.UUID
	Limit     int
	Cursor    string
}

// ListEvents pages the session history in ascending (created_at, id)
// order. The server caps the page size regardless of the requested
// limit; callers follow the cursor for the full history.
func (s *Service) ListEvents(ctx context.Context, sessionID uuid.UUID, input ListEventsInput) (*domain.EventPage, error) {
	limit := pipeline.ClampLimit(input.Limit, s.opts.DefaultPageSize, s.opts.MaxEventPage)

	c, err := pipeline.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, err
	}

	var page *domain.EventPage
	err = s.run(sessionID, func(*state) error {
		if _, err := s.store.Sessions().Get(ctx, sessionID); err != nil {
			return err
		}

		events, err := s.store.Events().List(ctx, sessionID, input.MessageID, c.At, c.ID, limit+1)
		if err != nil {
			return err
		}

		page = &domain.EventPage{}
		if len(events) > limit {
			page.HasMore = true
			events = events[:limit]
		}
		page.Events = events
		if len(events) > 0 {
			page.Cursor = pipeline.EventCursor(events[len(events)-1]).Encode()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// MessageText returns the current rendered text of a message: the
// cached live text when available, otherwise the payload of the last
// token event recorded for it.
func (s *Service) MessageText(ctx context.Context, sessionID, messageID uuid.UUID) (string, error) {
	var text string
	err := s.run(sessionID, func(*state) error {
		message, err := s.store.Messages().Get(ctx, messageID)
		if err != nil {
			return err
		}
		if message.SessionID != sessionID {
			return domain.ErrNotFound
		}

		if s.liveText != nil {
			if cached, ok, err := s.liveText.Get(ctx, messageID); err == nil && ok {
				text = cached
				return nil
			}
		}

		last, err := s.store.Events().LastToken(ctx, messageID)
		if err != nil {
			return err
		}
		if last == nil {
			return nil
		}
		var payload domain.TokenPayload
		if err := json.Unmarshal(last.Payload, &payload); err != nil {
			return nil
		}
		text = payload.Text
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
