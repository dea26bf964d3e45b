package service

import (
	"encoding/json"

	"github.com/cwrk-planet/signal-relay/internal/domain"
)

// Event is one inbound occurrence on a connection: a peer request or the
// channel's disconnect notification. The set is closed: Join, Signal, Leave, Disconnect.
type Event interface {
	eventName() string
}

type Join struct {
	RoomID          string
	DisplayIdentity string
}

type Signal struct {
	Target domain.ConnectionID
	Kind   domain.SignalKind
	Data   json.RawMessage
}

type Leave struct{}

// Disconnect is delivered by the transport once the channel is gone.
type Disconnect struct{}

func (Join) eventName() string       { return "join" }
func (Signal) eventName() string     { return "signal" }
func (Leave) eventName() string      { return "leave" }
func (Disconnect) eventName() string { return "disconnect" }
