package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/signal-relay/internal/service"
)

// Handler serves the read-only room introspection endpoints.
type Handler struct {
	relay *service.Relay
}

func NewHandler(relay *service.Relay) *Handler {
	return &Handler{relay: relay}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.relay.Rooms()
	resp := RoomsListResponse{Items: make([]RoomItem, 0, len(rooms))}
	for _, rm := range rooms {
		resp.Items = append(resp.Items, RoomItem{RoomID: rm.ID, Participants: rm.Participants})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /rooms/{id}/participants
func (h *Handler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	parts, ok := h.relay.Participants(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room_not_found"})
		return
	}
	resp := ParticipantsResponse{Items: make([]ParticipantItem, 0, len(parts))}
	for _, p := range parts {
		resp.Items = append(resp.Items, ParticipantItem{
			ConnectionID:    string(p.ConnectionID),
			DisplayIdentity: p.DisplayIdentity,
			JoinedAt:        p.JoinedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
