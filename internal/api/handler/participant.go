package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calegray/codedock/internal/actor"
	"github.com/calegray/codedock/internal/api/middleware"
	"github.com/calegray/codedock/internal/api/response"
	"github.com/calegray/codedock/internal/domain"
)

type ParticipantHandler struct {
	actors *actor.Service
}

func NewParticipantHandler(actors *actor.Service) *ParticipantHandler {
	return &ParticipantHandler{actors: actors}
}

// Add joins a user to the session
func (h *ParticipantHandler) Add(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	var req struct {
		UserID      string     `json:"user_id" validate:"required,max=100"`
		Role        string     `json:"role" validate:"omitempty,oneof=owner member"`
		GitHubLogin string     `json:"github_login" validate:"max=100"`
		GitHubEmail string     `json:"github_email" validate:"omitempty,email"`
		GitHubName  string     `json:"github_name" validate:"max=200"`
		OAuthToken  string     `json:"oauth_token"`
		TokenExpiry *time.Time `json:"token_expiry"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	participant, err := h.actors.AddParticipant(r.Context(), sessionID, actor.AddParticipantInput{
		UserID:      req.UserID,
		Role:        domain.ParticipantRole(req.Role),
		GitHubLogin: req.GitHubLogin,
		GitHubEmail: req.GitHubEmail,
		GitHubName:  req.GitHubName,
		OAuthToken:  req.OAuthToken,
		TokenExpiry: req.TokenExpiry,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, participant)
}

// List returns the session's participants
func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	participants, err := h.actors.ListParticipants(r.Context(), sessionID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, participants)
}

// Update applies a partial update to a participant. The acting user
// comes from the X-User-ID header set by the trusted frontend; role
// changes require them to be an owner.
func (h *ParticipantHandler) Update(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	participantID, err := uuid.Parse(chi.URLParam(r, "participantID"))
	if err != nil {
		response.BadRequest(w, "invalid participant ID")
		return
	}

	var req struct {
		Role        *string `json:"role" validate:"omitempty,oneof=owner member"`
		GitHubLogin *string `json:"github_login"`
		GitHubEmail *string `json:"github_email"`
		GitHubName  *string `json:"github_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	update := domain.ParticipantUpdate{
		GitHubLogin: req.GitHubLogin,
		GitHubEmail: req.GitHubEmail,
		GitHubName:  req.GitHubName,
	}
	if req.Role != nil {
		role := domain.ParticipantRole(*req.Role)
		update.Role = &role
	}

	participant, err := h.actors.UpdateParticipant(
		r.Context(), sessionID, participantID, r.Header.Get("X-User-ID"), update,
	)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, participant)
}

// RotateToken replaces a participant's stored OAuth token
func (h *ParticipantHandler) RotateToken(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	participantID, err := uuid.Parse(chi.URLParam(r, "participantID"))
	if err != nil {
		response.BadRequest(w, "invalid participant ID")
		return
	}

	var req struct {
		Token  string     `json:"token" validate:"required"`
		Expiry *time.Time `json:"expiry"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	if err := h.actors.RotateOAuthToken(r.Context(), sessionID, participantID, req.Token, req.Expiry); err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, map[string]string{"status": "rotated"})
}
