package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/calegray/codedock/internal/actor"
	"github.com/calegray/codedock/internal/api/middleware"
	"github.com/calegray/codedock/internal/api/response"
	"github.com/calegray/codedock/internal/domain"
)

type ArtifactHandler struct {
	actors *actor.Service
}

func NewArtifactHandler(actors *actor.Service) *ArtifactHandler {
	return &ArtifactHandler{actors: actors}
}

// Post registers one durable output of the session
func (h *ArtifactHandler) Post(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	var req struct {
		Type     string          `json:"type" validate:"required,oneof=pr branch screenshot preview"`
		URL      string          `json:"url" validate:"required,url"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	artifact, err := h.actors.PostArtifact(r.Context(), sessionID, actor.PostArtifactInput{
		Type:     domain.ArtifactType(req.Type),
		URL:      req.URL,
		Metadata: req.Metadata,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, artifact)
}

// List returns the session's artifacts, newest first
func (h *ArtifactHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	artifacts, err := h.actors.ListArtifacts(r.Context(), sessionID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, artifacts)
}

// CreatePullRequest opens a PR from the session's working branch on
// behalf of a participant
func (h *ArtifactHandler) CreatePullRequest(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	var req struct {
		ParticipantID uuid.UUID `json:"participant_id" validate:"required"`
		Title         string    `json:"title" validate:"required,max=300"`
		Body          string    `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	pr, err := h.actors.CreatePullRequest(r.Context(), sessionID, actor.CreatePullRequestInput{
		ParticipantID: req.ParticipantID,
		Title:         req.Title,
		Body:          req.Body,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, pr)
}
