package domain

import "errors"

var (
	ErrDuplicateParticipant = errors.New("participant already in the room")
	ErrAlreadyInRoom        = errors.New("connection already joined a room")
	ErrUnknownPeer          = errors.New("peer not found in the room")
	ErrNotJoined            = errors.New("connection has not joined a room")
	ErrRoomFull             = errors.New("room is full")
	ErrInvalidRoom          = errors.New("room id is required")
	ErrInvalidSignal        = errors.New("unsupported signal kind")
)

// Reason returns the short code sent to clients in *-error events.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateParticipant):
		return "duplicate_participant"
	case errors.Is(err, ErrAlreadyInRoom):
		return "already_in_room"
	case errors.Is(err, ErrUnknownPeer):
		return "unknown_peer"
	case errors.Is(err, ErrNotJoined):
		return "not_joined"
	case errors.Is(err, ErrRoomFull):
		return "room_full"
	case errors.Is(err, ErrInvalidRoom):
		return "invalid_room"
	case errors.Is(err, ErrInvalidSignal):
		return "invalid_signal"
	default:
		return "internal"
	}
}
