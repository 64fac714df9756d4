package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calegray/codedock/internal/actor"
	"github.com/calegray/codedock/internal/api/middleware"
	"github.com/calegray/codedock/internal/api/response"
	"github.com/calegray/codedock/internal/domain"
)

type PromptHandler struct {
	actors *actor.Service
}

func NewPromptHandler(actors *actor.Service) *PromptHandler {
	return &PromptHandler{actors: actors}
}

// Prompt submits a prompt to the session. The reply reports whether
// the message started processing immediately or queued behind an
// earlier one.
func (h *PromptHandler) Prompt(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	var req struct {
		Content       string     `json:"content" validate:"required"`
		Model         string     `json:"model" validate:"max=100"`
		Source        string     `json:"source" validate:"omitempty,oneof=web api sandbox"`
		ParticipantID *uuid.UUID `json:"participant_id"`
		Attachments   []string   `json:"attachments" validate:"max=20"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	message, err := h.actors.Prompt(r.Context(), sessionID, actor.PromptInput{
		Content:       req.Content,
		Model:         req.Model,
		Source:        domain.MessageSource(req.Source),
		ParticipantID: req.ParticipantID,
		Attachments:   req.Attachments,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, message)
}

// Stop cancels the in-flight execution, if any
func (h *PromptHandler) Stop(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	if err := h.actors.Stop(r.Context(), sessionID); err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, map[string]string{"status": "stopped"})
}

// ListMessages returns the session's messages oldest-first
func (h *PromptHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	messages, err := h.actors.ListMessages(r.Context(), sessionID, limit)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, messages)
}

// MessageText returns the current rendered text of one message,
// served from the live cache when the message is still streaming.
func (h *PromptHandler) MessageText(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		response.BadRequest(w, "invalid message ID")
		return
	}

	text, err := h.actors.MessageText(r.Context(), sessionID, messageID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, map[string]string{"text": text})
}
