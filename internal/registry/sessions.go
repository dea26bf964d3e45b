package registry

import "github.com/cwrk-planet/signal-relay/internal/domain"

// Sessions is the connection -> room reverse index.
type Sessions struct {
	byConn map[domain.ConnectionID]domain.Session
}

func NewSessions() *Sessions {
	return &Sessions{byConn: make(map[domain.ConnectionID]domain.Session)}
}

// Bind records that id joined roomID. A connection holds at most one session.
func (s *Sessions) Bind(id domain.ConnectionID, roomID string, p domain.Participant) error {
	if _, ok := s.byConn[id]; ok {
		return domain.ErrAlreadyInRoom
	}
	s.byConn[id] = domain.Session{RoomID: roomID, Participant: p}
	return nil
}

func (s *Sessions) Lookup(id domain.ConnectionID) (domain.Session, bool) {
	sess, ok := s.byConn[id]
	return sess, ok
}

// Unbind removes the session and returns what was removed, if anything.
func (s *Sessions) Unbind(id domain.ConnectionID) (domain.Session, bool) {
	sess, ok := s.byConn[id]
	if ok {
		delete(s.byConn, id)
	}
	return sess, ok
}

func (s *Sessions) Len() int { return len(s.byConn) }
