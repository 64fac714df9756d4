package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/calegray/codedock/internal/actor"
	"github.com/calegray/codedock/internal/api/middleware"
	"github.com/calegray/codedock/internal/api/response"
	"github.com/calegray/codedock/internal/domain"
)

type EventHandler struct {
	actors *actor.Service
}

func NewEventHandler(actors *actor.Service) *EventHandler {
	return &EventHandler{actors: actors}
}

// List pages the session history in append order
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	input := actor.ListEventsInput{
		Cursor: r.URL.Query().Get("cursor"),
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			input.Limit = v
		}
	}
	if m := r.URL.Query().Get("message_id"); m != "" {
		messageID, err := uuid.Parse(m)
		if err != nil {
			response.BadRequest(w, "invalid message ID")
			return
		}
		input.MessageID = &messageID
	}

	page, err := h.actors.ListEvents(r.Context(), sessionID, input)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, page)
}

// Stream pushes session events to the viewer over SSE. A cursor query
// parameter replays history first; the live feed follows with any
// overlap deduplicated, so a reconnecting viewer never misses or
// repeats an event.
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "streaming unsupported")
		return
	}

	// Subscribe before replay so no event published during catch-up is
	// lost; the overlap is filtered by event id below.
	stream, cancel := h.actors.Hub().Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	lastID := ""
	cursor := r.URL.Query().Get("cursor")
	for {
		page, err := h.actors.ListEvents(r.Context(), sessionID, actor.ListEventsInput{Cursor: cursor})
		if err != nil {
			fmt.Fprintf(w, "event: error\ndata: %q\n\n", "history replay failed")
			flusher.Flush()
			return
		}
		for _, event := range page.Events {
			writeSSE(w, event)
			lastID = event.ID
		}
		flusher.Flush()
		if !page.HasMore {
			break
		}
		cursor = page.Cursor
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-stream:
			if !open {
				// Dropped as a slow viewer; the client reconnects with
				// its last seen id as cursor.
				return
			}
			if event.ID <= lastID {
				continue
			}
			writeSSE(w, event)
			lastID = event.ID
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data)
}

// Record accepts one event pushed by the session's sandbox
func (h *EventHandler) Record(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	var req struct {
		Type      string          `json:"type" validate:"required,oneof=token tool_call tool_result execution_complete git_sync system"`
		MessageID *uuid.UUID      `json:"message_id"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	event, err := h.actors.RecordSandboxEvent(r.Context(), sessionID, actor.EventInput{
		Type:      domain.EventType(req.Type),
		MessageID: req.MessageID,
		Payload:   req.Payload,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, event)
}

// Heartbeat records sandbox liveness
func (h *EventHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.BadRequest(w, "missing session ID")
		return
	}

	if err := h.actors.Heartbeat(r.Context(), sessionID); err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, map[string]string{"status": "ok"})
}
