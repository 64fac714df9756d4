package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/calegray/codedock/internal/actor"
	"github.com/calegray/codedock/internal/api/middleware"
	"github.com/calegray/codedock/internal/api/response"
)

type SessionHandler struct {
	actors *actor.Service
}

func NewSessionHandler(actors *actor.Service) *SessionHandler {
	return &SessionHandler{actors: actors}
}

// Create creates a new session for a repository
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoOwner   string `json:"repo_owner" validate:"required,repoowner"`
		RepoName    string `json:"repo_name" validate:"required,reponame"`
		Title       string `json:"title" validate:"max=200"`
		Model       string `json:"model" validate:"max=100"`
		UserID      string `json:"user_id" validate:"max=100"`
		GitHubLogin string `json:"github_login" validate:"max=100"`
		GitHubEmail string `json:"github_email" validate:"omitempty,email"`
		GitHubName  string `json:"github_name" validate:"max=200"`
		OAuthToken  string `json:"oauth_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	session, err := h.actors.CreateSession(r.Context(), actor.CreateSessionInput{
		RepoOwner:   req.RepoOwner,
		RepoName:    req.RepoName,
		Title:       req.Title,
		Model:       req.Model,
		UserID:      req.UserID,
		GitHubLogin: req.GitHubLogin,
		GitHubEmail: req.GitHubEmail,
		GitHubName:  req.GitHubName,
		OAuthToken:  req.OAuthToken,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, session)
}

// List returns sessions newest-first, one cursor page at a time
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	cursor := r.URL.Query().Get("cursor")

	page, err := h.actors.ListSessions(r.Context(), limit, cursor)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, page)
}

// Get returns the full state of one session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	state, err := h.actors.GetSession(r.Context(), sessionID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, state)
}

// Archive moves a session to archived, stopping its sandbox
func (h *SessionHandler) Archive(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	if err := h.actors.ArchiveSession(r.Context(), sessionID); err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, map[string]string{"status": "archived"})
}

// Unarchive moves an archived session back to active
func (h *SessionHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	if err := h.actors.UnarchiveSession(r.Context(), sessionID); err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, map[string]string{"status": "active"})
}

// Delete removes a session and its entire history
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	if err := h.actors.DeleteSession(r.Context(), sessionID); err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, map[string]string{"message": "session deleted"})
}

// Snapshot snapshots the session's active sandbox on demand
func (h *SessionHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	var req struct {
		Reason string `json:"reason" validate:"max=200"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Optional body
	}
	if req.Reason == "" {
		req.Reason = "manual"
	}

	snapshotID, err := h.actors.SnapshotSession(r.Context(), sessionID, req.Reason)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, map[string]string{"snapshot_id": snapshotID})
}
