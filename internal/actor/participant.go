package actor

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/calegray/codedock/internal/domain"
)

// AddParticipantInput joins a user to a session. Role defaults to
// member; the first participant of a session becomes owner.
type AddParticipantInput struct {
	UserID      string
	Role        domain.ParticipantRole
	GitHubLogin string
	GitHubEmail string
	GitHubName  string
	OAuthToken  string
	TokenExpiry *time.Time
}

// AddParticipant registers a user on a session.
func (s *Service) AddParticipant(ctx context.Context, sessionID uuid.UUID, input AddParticipantInput) (*domain.Participant, error) {
	if input.UserID == "" {
		return nil, domain.NewValidationError("user_id", "must not be empty")
	}
	switch input.Role {
	case "", domain.RoleOwner, domain.RoleMember:
	default:
		return nil, domain.NewValidationError("role", "must be owner or member")
	}

	var participant *domain.Participant
	err := s.run(sessionID, func(*state) error {
		if _, err := s.store.Sessions().Get(ctx, sessionID); err != nil {
			return err
		}

		existing, err := s.store.Participants().GetByUserID(ctx, sessionID, input.UserID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			return &domain.ConflictError{Reason: "user already joined"}
		}

		others, err := s.store.Participants().ListBySession(ctx, sessionID)
		if err != nil {
			return err
		}

		role := input.Role
		if role == "" {
			role = domain.RoleMember
		}
		if len(others) == 0 {
			// The first participant implicitly owns the session.
			role = domain.RoleOwner
		}

		viewerToken, err := randomToken()
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		participant = &domain.Participant{
			ID:              uuid.New(),
			SessionID:       sessionID,
			UserID:          input.UserID,
			Role:            role,
			GitHubLogin:     input.GitHubLogin,
			GitHubEmail:     input.GitHubEmail,
			GitHubName:      input.GitHubName,
			TokenExpiresAt:  input.TokenExpiry,
			ViewerAuthToken: viewerToken,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if input.OAuthToken != "" {
			encrypted, err := s.encryptor.EncryptString(input.OAuthToken)
			if err != nil {
				return err
			}
			participant.EncryptedToken = encrypted
		}
		return s.store.Participants().Create(ctx, participant)
	})
	if err != nil {
		return nil, err
	}
	return participant, nil
}

// UpdateParticipant applies a partial update. Role changes require the
// caller to be an owner of the session.
func (s *Service) UpdateParticipant(ctx context.Context, sessionID, participantID uuid.UUID, callerUserID string, update domain.ParticipantUpdate) (*domain.Participant, error) {
	var participant *domain.Participant
	err := s.run(sessionID, func(*state) error {
		if _, err := s.store.Sessions().Get(ctx, sessionID); err != nil {
			return err
		}

		var err error
		participant, err = s.store.Participants().Get(ctx, participantID)
		if err != nil {
			return err
		}
		if participant.SessionID != sessionID {
			return domain.ErrNotFound
		}

		if update.Role != nil {
			switch *update.Role {
			case domain.RoleOwner, domain.RoleMember:
			default:
				return domain.NewValidationError("role", "must be owner or member")
			}
			caller, err := s.store.Participants().GetByUserID(ctx, sessionID, callerUserID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return &domain.ConflictError{Reason: "only an owner may change roles"}
				}
				return err
			}
			if caller.Role != domain.RoleOwner {
				return &domain.ConflictError{Reason: "only an owner may change roles"}
			}
			participant.Role = *update.Role
		}
		if update.GitHubLogin != nil {
			participant.GitHubLogin = *update.GitHubLogin
		}
		if update.GitHubEmail != nil {
			participant.GitHubEmail = *update.GitHubEmail
		}
		if update.GitHubName != nil {
			participant.GitHubName = *update.GitHubName
		}
		if update.EncryptedToken != nil {
			participant.EncryptedToken = *update.EncryptedToken
		}
		if update.TokenExpiresAt != nil {
			participant.TokenExpiresAt = update.TokenExpiresAt
		}

		participant.UpdatedAt = time.Now().UTC()
		return s.store.Participants().Update(ctx, participant)
	})
	if err != nil {
		return nil, err
	}
	return participant, nil
}

// RotateOAuthToken re-encrypts a participant's OAuth token. Every
// rotation produces fresh ciphertext under a fresh nonce.
func (s *Service) RotateOAuthToken(ctx context.Context, sessionID, participantID uuid.UUID, token string, expiry *time.Time) error {
	if token == "" {
		return domain.NewValidationError("token", "must not be empty")
	}
	encrypted, err := s.encryptor.EncryptString(token)
	if err != nil {
		return err
	}
	_, err = s.UpdateParticipant(ctx, sessionID, participantID, "", domain.ParticipantUpdate{
		EncryptedToken: &encrypted,
		TokenExpiresAt: expiry,
	})
	return err
}

// ListParticipants returns the session's participants, oldest first.
func (s *Service) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]domain.Participant, error) {
	var participants []domain.Participant
	err := s.run(sessionID, func(*state) error {
		if _, err := s.store.Sessions().Get(ctx, sessionID); err != nil {
			return err
		}
		var err error
		participants, err = s.store.Participants().ListBySession(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// randomToken mints an ephemeral viewer auth token.
func randomToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
