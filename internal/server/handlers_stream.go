package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/agora-live/agora/internal/hub"
	"github.com/agora-live/agora/internal/sanitize"
	"github.com/agora-live/agora/pkg/models"
)

func (s *Service) handleGlobalStream(w http.ResponseWriter, r *http.Request) {
	s.streamScope(w, r, models.ScopeGlobal)
}

func (s *Service) handleRoomStream(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	s.streamScope(w, r, models.Scope(id))
}

// streamScope attaches an SSE connection to a scope. The stream carries
// every envelope the scope sees, the caller's own messages included. It
// ends when the client disconnects or the room is retired; a retirement
// notice is always the last event delivered.
func (s *Service) streamScope(w http.ResponseWriter, r *http.Request, scope models.Scope) {
	handle, err := s.resolveHandle(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The store decides whether a room exists; the registry only knows
	// about rooms it has already seen. Without this check a join against
	// a never-assigned id would register a dangling connection.
	if !scope.IsGlobal() {
		if _, err := s.rooms.GetRoom(r.Context(), scope.RoomID()); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sess, err := s.hub.OpenSession(scope, handle)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.sessions.Store(sess.ID(), sess)
	defer s.sessions.Delete(sess.ID())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"session_id\":%q}\n\n", sess.ID())
	flusher.Flush()

	for {
		select {
		case env := <-sess.Events():
			writeEnvelope(w, flusher, env)
		case <-sess.Done():
			// Evicted. Drain whatever was queued before the session
			// closed so the terminal notice reaches the client.
			s.drainSession(w, flusher, sess)
			return
		case <-r.Context().Done():
			s.hub.CloseSession(sess)
			return
		}
	}
}

func (s *Service) drainSession(w http.ResponseWriter, flusher http.Flusher, sess *hub.Session) {
	for {
		select {
		case env := <-sess.Events():
			writeEnvelope(w, flusher, env)
		default:
			return
		}
	}
}

func writeEnvelope(w http.ResponseWriter, flusher http.Flusher, env models.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal envelope")
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

// handleSendMessage routes an inbound message onto the live session that
// owns it. A session destroyed by eviction or disconnect rejects the send.
func (s *Service) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	v, ok := s.sessions.Load(sid)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	sess := v.(*hub.Session)

	select {
	case <-sess.Done():
		writeError(w, http.StatusGone, "session closed")
		return
	default:
	}

	var req sendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	body := sanitize.Body(req.Body)
	if body == "" {
		writeError(w, http.StatusBadRequest, "empty message body")
		return
	}

	msg, err := s.hub.Send(r.Context(), sess, body)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// resolveHandle picks the participant handle for a stream: a valid bearer
// token wins, otherwise the handle query parameter.
func (s *Service) resolveHandle(r *http.Request) (string, error) {
	if email, ok := s.bearerSubject(r); ok {
		user, err := s.auth.GetUser(r.Context(), email)
		if err == nil && user.Username != "" {
			return user.Username, nil
		}
	}
	handle := strings.TrimSpace(r.URL.Query().Get("handle"))
	if handle == "" {
		return "", fmt.Errorf("missing handle")
	}
	return handle, nil
}
