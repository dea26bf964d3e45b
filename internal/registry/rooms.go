// Package registry holds the in-memory room membership state of the relay.
//
// Neither Rooms nor Sessions lock internally: the relay owns one of each and
// serializes every access behind its own mutex, so a mutation and the fan-out
// read that follows it happen atomically.
package registry

import (
	"sort"

	"github.com/cwrk-planet/signal-relay/internal/domain"
)

type room struct {
	participants []domain.Participant // join order
	index        map[domain.ConnectionID]struct{}
}

func newRoom() *room {
	return &room{index: make(map[domain.ConnectionID]struct{})}
}

// Rooms maps room ids to their ordered participant sets.
type Rooms struct {
	rooms map[string]*room
}

func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[string]*room)}
}

// CreateOrGet returns the participants of roomID, creating an empty room if absent.
func (r *Rooms) CreateOrGet(roomID string) []domain.Participant {
	return clone(r.createOrGet(roomID).participants)
}

func (r *Rooms) createOrGet(roomID string) *room {
	rm, ok := r.rooms[roomID]
	if !ok {
		rm = newRoom()
		r.rooms[roomID] = rm
	}
	return rm
}

// Add appends p to the end of the room's participant set.
func (r *Rooms) Add(roomID string, p domain.Participant) error {
	rm := r.createOrGet(roomID)
	if _, ok := rm.index[p.ConnectionID]; ok {
		return domain.ErrDuplicateParticipant
	}
	rm.participants = append(rm.participants, p)
	rm.index[p.ConnectionID] = struct{}{}
	return nil
}

// Remove drops the connection from the room and deletes the room once it is
// empty. Removing an absent participant is a no-op and reports false.
func (r *Rooms) Remove(roomID string, id domain.ConnectionID) bool {
	rm, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	removed := false
	if _, ok := rm.index[id]; ok {
		delete(rm.index, id)
		for i, p := range rm.participants {
			if p.ConnectionID == id {
				rm.participants = append(rm.participants[:i], rm.participants[i+1:]...)
				break
			}
		}
		removed = true
	}
	if len(rm.participants) == 0 {
		delete(r.rooms, roomID)
	}
	return removed
}

// List returns the room's participants in join order, skipping exclude.
// Pass an empty exclude to get everyone.
func (r *Rooms) List(roomID string, exclude domain.ConnectionID) []domain.Participant {
	rm, ok := r.rooms[roomID]
	if !ok {
		return []domain.Participant{}
	}
	out := make([]domain.Participant, 0, len(rm.participants))
	for _, p := range rm.participants {
		if exclude != "" && p.ConnectionID == exclude {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (r *Rooms) Contains(roomID string, id domain.ConnectionID) bool {
	rm, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	_, ok = rm.index[id]
	return ok
}

func (r *Rooms) Exists(roomID string) bool {
	_, ok := r.rooms[roomID]
	return ok
}

func (r *Rooms) Size(roomID string) int {
	if rm, ok := r.rooms[roomID]; ok {
		return len(rm.participants)
	}
	return 0
}

// Len is the number of rooms currently held.
func (r *Rooms) Len() int { return len(r.rooms) }

// Infos lists every room sorted by id.
func (r *Rooms) Infos() []domain.RoomInfo {
	out := make([]domain.RoomInfo, 0, len(r.rooms))
	for id, rm := range r.rooms {
		out = append(out, domain.RoomInfo{ID: id, Participants: len(rm.participants)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func clone(ps []domain.Participant) []domain.Participant {
	out := make([]domain.Participant, len(ps))
	copy(out, ps)
	return out
}
