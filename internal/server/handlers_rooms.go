package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/agora-live/agora/pkg/models"
)

const recentMessageLimit = 50

func (s *Service) handleRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.rooms.ListRooms(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	summaries := make([]models.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, models.RoomSummary{
			ID:    room.ID,
			Label: room.Label,
			Score: room.Score,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": summaries})
}

// handleRoomDetail returns one room with its member articles, recent
// messages, and current listener count.
func (s *Service) handleRoomDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	ctx := r.Context()

	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	items, err := s.articles.GetByIDs(ctx, room.MemberIDs)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	recent, err := s.messages.Recent(ctx, models.Scope(id), recentMessageLimit)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"room":            room,
		"items":           items,
		"recent_messages": recent,
		"listeners":       s.hub.Registry().Count(models.Scope(id)),
	})
}
