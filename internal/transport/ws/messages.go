package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cwrk-planet/signal-relay/internal/domain"
	"github.com/cwrk-planet/signal-relay/internal/protocol"
	"github.com/cwrk-planet/signal-relay/internal/service"
)

var errUnknownEvent = errors.New("unknown event type")

// decodeEvent turns one inbound frame into a relay event. Disconnect is never
// produced here; only the transport raises it.
func decodeEvent(data []byte) (service.Event, error) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case protocol.TypeJoin:
		var p protocol.JoinPayload
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, err
		}
		return service.Join{RoomID: p.RoomID, DisplayIdentity: p.DisplayIdentity}, nil
	case protocol.TypeSignal:
		var p protocol.SignalPayload
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, err
		}
		return service.Signal{
			Target: domain.ConnectionID(p.TargetConnectionID),
			Kind:   domain.SignalKind(p.Kind),
			Data:   p.Data,
		}, nil
	case protocol.TypeLeave:
		return service.Leave{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownEvent, env.Type)
	}
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func badRequest() protocol.Message {
	return protocol.Message{Type: protocol.TypeError, Payload: protocol.ErrorPayload{Reason: "bad_request"}}
}
