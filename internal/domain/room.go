package domain

// RoomInfo is a read-only summary of one room for introspection.
type RoomInfo struct {
	ID           string
	Participants int
}
