package actor

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/calegray/codedock/internal/domain"
	"github.com/calegray/codedock/internal/pipeline"
	"github.com/calegray/codedock/internal/provision"
)

// PromptInput carries one prompt submission.
type PromptInput struct {
	Content       string
	Model         string
	Source        domain.MessageSource
	ParticipantID *uuid.UUID
	Attachments   []string
}

// Prompt creates a message for the prompt, ensures a sandbox exists,
// and fills the execution slot when it is free. At most one message
// per session is processing at a time, and the slot always goes to
// the oldest pending message first: a new prompt arriving after a
// stop or a dispatch failure resumes the queue instead of jumping it.
func (s *Service) Prompt(ctx context.Context, sessionID uuid.UUID, input PromptInput) (*domain.Message, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, domain.NewValidationError("content", "must not be empty")
	}
	if input.Source == "" {
		input.Source = domain.SourceWeb
	}

	var message *domain.Message
	err := s.run(sessionID, func(a *state) error {
		session, err := s.store.Sessions().Get(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status == domain.SessionArchived {
			return &domain.ConflictError{Reason: "session is archived"}
		}

		instance, err := s.ensureSandbox(ctx, session)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		message = &domain.Message{
			ID:            uuid.New(),
			SessionID:     sessionID,
			ParticipantID: input.ParticipantID,
			Content:       input.Content,
			Source:        input.Source,
			Model:         input.Model,
			Attachments:   input.Attachments,
			Status:        domain.MessagePending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		var toDispatch *domain.Message
		err = s.store.WithTx(ctx, func(tx domain.Store) error {
			inFlight, err := tx.Messages().Processing(ctx, sessionID)
			if err != nil {
				return err
			}
			if inFlight == nil {
				// The slot is free, but an older queued message takes
				// it before this one does.
				head, err := tx.Messages().NextPending(ctx, sessionID)
				if err != nil {
					return err
				}
				if head == nil {
					message.Status = domain.MessageProcessing
					message.StartedAt = &now
					toDispatch = message
				} else {
					head.Status = domain.MessageProcessing
					head.StartedAt = &now
					head.UpdatedAt = now
					if err := tx.Messages().Update(ctx, head); err != nil {
						return err
					}
					toDispatch = head
				}
			}
			if err := tx.Messages().Create(ctx, message); err != nil {
				return err
			}
			if session.Status == domain.SessionCreated {
				session.Status = domain.SessionActive
				session.UpdatedAt = now
				if err := tx.Sessions().Update(ctx, session); err != nil {
					return err
				}
			}
			s.touch(instance)
			return tx.Sandboxes().Update(ctx, instance)
		})
		if err != nil {
			return err
		}

		if toDispatch != nil {
			s.dispatch(ctx, instance, toDispatch)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// dispatch forwards a processing message to the sandbox execution
// channel. A dispatch failure fails the message locally; the caller
// may retry with a new prompt.
func (s *Service) dispatch(ctx context.Context, instance *domain.SandboxInstance, message *domain.Message) {
	err := s.provisioner.DispatchPrompt(ctx, instance.ExternalID, provision.PromptRequest{
		MessageID:   message.ID,
		Content:     message.Content,
		Model:       message.Model,
		Attachments: message.Attachments,
	})
	if err == nil {
		return
	}

	log.Error().Err(err).
		Str("session_id", message.SessionID.String()).
		Str("message_id", message.ID.String()).
		Msg("Prompt dispatch failed")

	now := time.Now().UTC()
	message.Status = domain.MessageFailed
	message.ErrorMessage = "failed to dispatch prompt to sandbox"
	message.UpdatedAt = now
	message.CompletedAt = &now
	if uerr := s.store.Messages().Update(ctx, message); uerr != nil {
		log.Error().Err(uerr).
			Str("message_id", message.ID.String()).
			Msg("Failed to persist dispatch failure")
	}
}

// Stop cancels the in-flight execution. Best-effort: the message is
// marked failed locally even when the remote cancellation signal is
// never acknowledged, and the local transition is never rolled back.
func (s *Service) Stop(ctx context.Context, sessionID uuid.UUID) error {
	return s.run(sessionID, func(a *state) error {
		if _, err := s.store.Sessions().Get(ctx, sessionID); err != nil {
			return err
		}

		inFlight, err := s.store.Messages().Processing(ctx, sessionID)
		if err != nil {
			return err
		}
		if inFlight == nil {
			return nil
		}

		now := time.Now().UTC()
		inFlight.Status = domain.MessageFailed
		inFlight.ErrorMessage = "execution cancelled"
		inFlight.UpdatedAt = now
		inFlight.CompletedAt = &now
		if err := s.store.Messages().Update(ctx, inFlight); err != nil {
			return err
		}

		instance, err := s.store.Sandboxes().ActiveBySession(ctx, sessionID)
		if err == nil && instance != nil && instance.ExternalID != "" {
			if cerr := s.provisioner.CancelExecution(ctx, instance.ExternalID); cerr != nil {
				log.Warn().Err(cerr).
					Str("session_id", sessionID.String()).
					Msg("Remote cancellation not acknowledged")
			}
		}
		if s.liveText != nil {
			_ = s.liveText.Invalidate(ctx, inFlight.ID)
		}
		return nil
	})
}

// ListMessages returns the session's messages oldest-first.
func (s *Service) ListMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	err := s.run(sessionID, func(*state) error {
		if _, err := s.store.Sessions().Get(ctx, sessionID); err != nil {
			return err
		}
		var err error
		limit = pipeline.ClampLimit(limit, s.opts.DefaultPageSize, s.opts.MaxMessagePage)
		messages, err = s.store.Messages().ListBySession(ctx, sessionID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}
