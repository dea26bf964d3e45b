package domain

import "time"

// ConnectionID is the opaque, process-unique identity of one live connection.
type ConnectionID string

type Participant struct {
	ConnectionID    ConnectionID
	DisplayIdentity string
	JoinedAt        time.Time
}

// Session is the reverse index entry: which room a connection currently occupies.
type Session struct {
	RoomID      string
	Participant Participant
}
