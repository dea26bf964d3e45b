package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cwrk-planet/signal-relay/internal/domain"
	"github.com/cwrk-planet/signal-relay/internal/logger"
	"github.com/cwrk-planet/signal-relay/internal/metrics"
	"github.com/cwrk-planet/signal-relay/internal/protocol"
	"github.com/cwrk-planet/signal-relay/internal/registry"
)

// Peer is the relay's handle on one connection channel.
type Peer interface {
	ID() domain.ConnectionID
	// Send queues msg for delivery. It must not block; an error means the
	// channel is stale and the peer gets dropped.
	Send(msg protocol.Message) error
	Close() error
}

type RelayConfig struct {
	MaxRoomSize int // 0 = unbounded
}

// Relay owns the room registry and session tracker and is the only writer of
// both. Every mutation, and the fan-out read that follows it, runs under mu;
// outbound sends are queued while holding it so notification order matches
// registry order.
type Relay struct {
	mu       sync.Mutex
	rooms    *registry.Rooms
	sessions *registry.Sessions
	peers    map[domain.ConnectionID]Peer // joined connections only

	cfg     RelayConfig
	metrics *metrics.Relay
	tracer  trace.Tracer
	now     func() time.Time
}

func NewRelay(cfg RelayConfig, m *metrics.Relay) *Relay {
	if cfg.MaxRoomSize < 0 {
		cfg.MaxRoomSize = 0
	}
	return &Relay{
		rooms:    registry.NewRooms(),
		sessions: registry.NewSessions(),
		peers:    make(map[domain.ConnectionID]Peer),
		cfg:      cfg,
		metrics:  m,
		tracer:   otel.Tracer("github.com/cwrk-planet/signal-relay/internal/service"),
		now:      time.Now,
	}
}

// Handle runs ev for peer p. The returned error is the local condition that
// was already reported to p as an *-error event; callers only log it.
func (r *Relay) Handle(ctx context.Context, p Peer, ev Event) error {
	ctx, span := r.tracer.Start(ctx, "relay."+ev.eventName(),
		trace.WithAttributes(attribute.String("conn.id", string(p.ID()))))
	defer span.End()

	var err error
	switch e := ev.(type) {
	case Join:
		err = r.join(ctx, p, e)
	case Signal:
		err = r.signal(ctx, p, e)
	case Leave:
		err = r.leave(ctx, p)
	case Disconnect:
		r.depart(ctx, p.ID(), metrics.CauseDisconnect)
	default:
		err = fmt.Errorf("unsupported event %T", ev)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *Relay) join(ctx context.Context, p Peer, e Join) error {
	id := p.ID()
	if e.RoomID == "" {
		return r.rejectJoin(ctx, p, domain.ErrInvalidRoom)
	}

	r.mu.Lock()
	part, existing, err := r.admitLocked(id, e)
	if err != nil {
		r.mu.Unlock()
		return r.rejectJoin(ctx, p, err)
	}
	r.peers[id] = p

	items := make([]protocol.ParticipantItem, 0, len(existing))
	for _, ex := range existing {
		items = append(items, participantItem(ex))
	}
	failed := r.sendLocked(ctx, nil, p, protocol.Message{
		Type: protocol.TypeRoomSnapshot,
		Payload: protocol.RoomSnapshotPayload{
			RoomID:       e.RoomID,
			ConnectionID: string(id),
			Participants: items,
		},
	})
	joined := protocol.Message{
		Type: protocol.TypePeerJoined,
		Payload: protocol.PeerJoinedPayload{
			ConnectionID:    string(id),
			DisplayIdentity: part.DisplayIdentity,
		},
	}
	for _, ex := range existing {
		failed = r.sendLocked(ctx, failed, r.peers[ex.ConnectionID], joined)
	}
	r.observeLocked()
	r.mu.Unlock()

	r.metrics.Joined()
	logger.FromContext(ctx).InfoContext(ctx, "peer joined",
		"room", e.RoomID, "conn_id", id, "peers", len(existing))

	r.dropFailed(ctx, failed)
	return nil
}

// admitLocked checks join preconditions and records the participant in both
// indexes, or in neither.
func (r *Relay) admitLocked(id domain.ConnectionID, e Join) (domain.Participant, []domain.Participant, error) {
	if _, ok := r.sessions.Lookup(id); ok {
		return domain.Participant{}, nil, domain.ErrAlreadyInRoom
	}
	if r.cfg.MaxRoomSize > 0 && r.rooms.Size(e.RoomID) >= r.cfg.MaxRoomSize {
		return domain.Participant{}, nil, domain.ErrRoomFull
	}

	existing := r.rooms.List(e.RoomID, id)
	part := domain.Participant{
		ConnectionID:    id,
		DisplayIdentity: e.DisplayIdentity,
		JoinedAt:        r.now(),
	}
	if err := r.rooms.Add(e.RoomID, part); err != nil {
		return domain.Participant{}, nil, err
	}
	if err := r.sessions.Bind(id, e.RoomID, part); err != nil {
		r.rooms.Remove(e.RoomID, id)
		return domain.Participant{}, nil, err
	}
	return part, existing, nil
}

func (r *Relay) rejectJoin(ctx context.Context, p Peer, err error) error {
	r.metrics.JoinRejected(domain.Reason(err))
	r.replyError(ctx, p, protocol.TypeJoinError, err)
	return err
}

func (r *Relay) signal(ctx context.Context, p Peer, e Signal) error {
	id := p.ID()
	if !e.Kind.Valid() {
		return r.rejectSignal(ctx, p, domain.ErrInvalidSignal)
	}

	r.mu.Lock()
	from, ok := r.sessions.Lookup(id)
	if !ok {
		r.mu.Unlock()
		return r.rejectSignal(ctx, p, domain.ErrNotJoined)
	}
	to, ok := r.sessions.Lookup(e.Target)
	if !ok || e.Target == id || to.RoomID != from.RoomID {
		r.mu.Unlock()
		return r.rejectSignal(ctx, p, domain.ErrUnknownPeer)
	}
	failed := r.sendLocked(ctx, nil, r.peers[e.Target], protocol.Message{
		Type: protocol.TypeSignal,
		Payload: protocol.RelayedSignalPayload{
			SenderConnectionID: string(id),
			Kind:               string(e.Kind),
			Data:               e.Data,
		},
	})
	r.mu.Unlock()

	r.metrics.Signaled(string(e.Kind))
	logger.FromContext(ctx).DebugContext(ctx, "signal relayed",
		"room", from.RoomID, "from", id, "to", e.Target, "kind", e.Kind)

	r.dropFailed(ctx, failed)
	return nil
}

func (r *Relay) rejectSignal(ctx context.Context, p Peer, err error) error {
	r.metrics.SignalDropped(domain.Reason(err))
	r.replyError(ctx, p, protocol.TypeSignalError, err)
	return err
}

func (r *Relay) leave(ctx context.Context, p Peer) error {
	if !r.depart(ctx, p.ID(), metrics.CauseLeave) {
		r.replyError(ctx, p, protocol.TypeLeaveError, domain.ErrNotJoined)
		return domain.ErrNotJoined
	}
	return nil
}

// depart is the shared cleanup of leave and disconnect. It reports whether the
// connection was joined; a second call for the same connection is a no-op.
func (r *Relay) depart(ctx context.Context, id domain.ConnectionID, cause string) bool {
	r.mu.Lock()
	sess, failed, ok := r.removeLocked(ctx, id)
	r.mu.Unlock()

	if ok {
		r.metrics.Departed(cause)
		logger.FromContext(ctx).InfoContext(ctx, "peer left",
			"room", sess.RoomID, "conn_id", id, "cause", cause)
	}
	r.dropFailed(ctx, failed)
	return ok
}

func (r *Relay) removeLocked(ctx context.Context, id domain.ConnectionID) (domain.Session, []Peer, bool) {
	sess, ok := r.sessions.Unbind(id)
	if !ok {
		return domain.Session{}, nil, false
	}
	delete(r.peers, id)
	r.rooms.Remove(sess.RoomID, id)

	var failed []Peer
	left := protocol.Message{
		Type:    protocol.TypePeerLeft,
		Payload: protocol.PeerLeftPayload{ConnectionID: string(id)},
	}
	for _, rest := range r.rooms.List(sess.RoomID, "") {
		failed = r.sendLocked(ctx, failed, r.peers[rest.ConnectionID], left)
	}
	r.observeLocked()
	return sess, failed, true
}

// dropFailed removes peers whose channel rejected a send, as if they had
// disconnected, and closes their channel. Removing one may fail sends to others.
func (r *Relay) dropFailed(ctx context.Context, failed []Peer) {
	for len(failed) > 0 {
		p := failed[0]
		failed = failed[1:]

		r.mu.Lock()
		sess, more, ok := r.removeLocked(ctx, p.ID())
		r.mu.Unlock()

		if !ok {
			continue
		}
		r.metrics.Departed(metrics.CauseSendFailed)
		logger.FromContext(ctx).WarnContext(ctx, "dropping stale peer",
			"room", sess.RoomID, "conn_id", p.ID())
		if err := p.Close(); err != nil {
			slog.Debug("close stale peer", "conn_id", p.ID(), "err", err)
		}
		failed = append(failed, more...)
	}
}

func (r *Relay) sendLocked(ctx context.Context, failed []Peer, p Peer, msg protocol.Message) []Peer {
	if p == nil {
		return failed
	}
	if err := p.Send(msg); err != nil {
		logger.FromContext(ctx).DebugContext(ctx, "relay send failed",
			"to", p.ID(), "type", msg.Type, "err", err)
		return append(failed, p)
	}
	return failed
}

func (r *Relay) replyError(ctx context.Context, p Peer, typ string, err error) {
	msg := protocol.Message{Type: typ, Payload: protocol.ErrorPayload{Reason: domain.Reason(err)}}
	if sendErr := p.Send(msg); sendErr != nil {
		logger.FromContext(ctx).DebugContext(ctx, "error reply not delivered",
			"conn_id", p.ID(), "type", typ, "err", sendErr)
	}
}

func (r *Relay) observeLocked() {
	r.metrics.Occupancy(r.rooms.Len(), r.sessions.Len())
}

// Rooms lists the rooms that currently have participants.
func (r *Relay) Rooms() []domain.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms.Infos()
}

// Participants returns the room's participants in join order.
func (r *Relay) Participants(roomID string) ([]domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.rooms.Exists(roomID) {
		return nil, false
	}
	return r.rooms.List(roomID, ""), true
}

func (r *Relay) Session(id domain.ConnectionID) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Lookup(id)
}

func participantItem(p domain.Participant) protocol.ParticipantItem {
	return protocol.ParticipantItem{
		ConnectionID:    string(p.ConnectionID),
		DisplayIdentity: p.DisplayIdentity,
	}
}
