package actor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/calegray/codedock/internal/domain"
	"github.com/calegray/codedock/internal/scm"
)

// PostArtifactInput registers one durable output of a session.
type PostArtifactInput struct {
	Type     domain.ArtifactType
	URL      string
	Metadata json.RawMessage
}

// PostArtifact records an artifact. Artifacts are write-once; a newer
// artifact of the same type supersedes older ones by creation time.
func (s *Service) PostArtifact(ctx context.Context, sessionID uuid.UUID, input PostArtifactInput) (*domain.Artifact, error) {
	switch input.Type {
	case domain.ArtifactPR, domain.ArtifactBranch, domain.ArtifactScreenshot, domain.ArtifactPreview:
	default:
		return nil, domain.NewValidationError("type", "unknown artifact type")
	}
	if input.URL == "" {
		return nil, domain.NewValidationError("url", "must not be empty")
	}

	var artifact *domain.Artifact
	err := s.run(sessionID, func(*state) error {
		if _, err := s.store.Sessions().Get(ctx, sessionID); err != nil {
			return err
		}
		artifact = &domain.Artifact{
			ID:        uuid.New(),
			SessionID: sessionID,
			Type:      input.Type,
			URL:       input.URL,
			Metadata:  input.Metadata,
			CreatedAt: time.Now().UTC(),
		}
		return s.store.Artifacts().Create(ctx, artifact)
	})
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// ListArtifacts returns the session's artifacts, newest first.
func (s *Service) ListArtifacts(ctx context.Context, sessionID uuid.UUID) ([]domain.Artifact, error) {
	var artifacts []domain.Artifact
	err := s.run(sessionID, func(*state) error {
		if _, err := s.store.Sessions().Get(ctx, sessionID); err != nil {
			return err
		}
		var err error
		artifacts, err = s.store.Artifacts().ListBySession(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

// CreatePullRequestInput opens a PR from the session's working branch.
type CreatePullRequestInput struct {
	ParticipantID uuid.UUID
	Title         string
	Body          string
}

// CreatePullRequest decrypts the participant's token transiently,
// calls the source-hosting collaborator, and registers the resulting
// PR as an artifact.
func (s *Service) CreatePullRequest(ctx context.Context, sessionID uuid.UUID, input CreatePullRequestInput) (*scm.PullRequest, error) {
	if input.Title == "" {
		return nil, domain.NewValidationError("title", "must not be empty")
	}

	var pr *scm.PullRequest
	err := s.run(sessionID, func(*state) error {
		session, err := s.store.Sessions().Get(ctx, sessionID)
		if err != nil {
			return err
		}
		participant, err := s.store.Participants().Get(ctx, input.ParticipantID)
		if err != nil {
			return err
		}
		if participant.SessionID != sessionID {
			return domain.ErrNotFound
		}
		if participant.EncryptedToken == "" {
			return &domain.ConflictError{Reason: "participant has no stored credentials"}
		}

		// The plaintext token exists only for the duration of this call.
		token, err := s.encryptor.DecryptString(participant.EncryptedToken)
		if err != nil {
			return fmt.Errorf("failed to decrypt participant token: %w", err)
		}

		pr, err = s.scm.CreatePullRequest(ctx, scm.CreatePullRequestInput{
			Owner: session.RepoOwner,
			Repo:  session.RepoName,
			Title: input.Title,
			Body:  input.Body,
			Head:  session.WorkingBranch,
			Base:  session.DefaultBranch,
			Token: token,
		})
		if err != nil {
			return err
		}

		metadata, err := json.Marshal(map[string]any{
			"number": pr.Number,
			"state":  pr.State,
		})
		if err != nil {
			return err
		}
		artifact := &domain.Artifact{
			ID:        uuid.New(),
			SessionID: sessionID,
			Type:      domain.ArtifactPR,
			URL:       pr.HTMLURL,
			Metadata:  metadata,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.Artifacts().Create(ctx, artifact); err != nil {
			return err
		}

		log.Info().
			Str("session_id", sessionID.String()).
			Int("pr_number", pr.Number).
			Msg("Pull request created")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pr, nil
}
