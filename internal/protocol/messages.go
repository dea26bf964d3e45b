// Package protocol defines the JSON frames exchanged with browser peers.
package protocol

import "encoding/json"

// Inbound events, peer -> relay.
const (
	TypeJoin   = "join"
	TypeSignal = "signal"
	TypeLeave  = "leave"
)

// Outbound events, relay -> peer.
const (
	TypeHello        = "hello"         // own connection id, sent once after upgrade
	TypeRoomSnapshot = "room-snapshot" // everyone already in the room
	TypePeerJoined   = "peer-joined"
	TypePeerLeft     = "peer-left"
	TypeJoinError    = "join-error"
	TypeSignalError  = "signal-error"
	TypeLeaveError   = "leave-error"
	TypeError        = "error" // malformed frame
)

// Message is the outbound envelope.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Envelope is the inbound envelope; Payload is decoded once Type is known.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinPayload struct {
	RoomID          string `json:"roomId"`
	DisplayIdentity string `json:"displayIdentity"`
}

type SignalPayload struct {
	TargetConnectionID string          `json:"targetConnectionId"`
	Kind               string          `json:"kind"`
	Data               json.RawMessage `json:"data"`
}

type HelloPayload struct {
	ConnectionID string `json:"connectionId"`
}

type ParticipantItem struct {
	ConnectionID    string `json:"connectionId"`
	DisplayIdentity string `json:"displayIdentity"`
}

type RoomSnapshotPayload struct {
	RoomID       string            `json:"roomId"`
	ConnectionID string            `json:"connectionId"`
	Participants []ParticipantItem `json:"participants"`
}

type PeerJoinedPayload struct {
	ConnectionID    string `json:"connectionId"`
	DisplayIdentity string `json:"displayIdentity"`
}

type PeerLeftPayload struct {
	ConnectionID string `json:"connectionId"`
}

// RelayedSignalPayload is what the target receives; Data is forwarded byte for byte.
type RelayedSignalPayload struct {
	SenderConnectionID string          `json:"senderConnectionId"`
	Kind               string          `json:"kind"`
	Data               json.RawMessage `json:"data"`
}

type ErrorPayload struct {
	Reason string `json:"reason"`
}
