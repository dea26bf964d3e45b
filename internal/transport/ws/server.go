package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/cwrk-planet/signal-relay/internal/auth"
	"github.com/cwrk-planet/signal-relay/internal/domain"
	"github.com/cwrk-planet/signal-relay/internal/logger"
	"github.com/cwrk-planet/signal-relay/internal/protocol"
	"github.com/cwrk-planet/signal-relay/internal/service"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

type Config struct {
	PingInterval      time.Duration
	WriteWait         time.Duration
	MaxMessageBytes   int64
	SendQueueSize     int
	MessagesPerSecond float64
	MessageBurst      int
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = 15 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 5 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 64 * 1024 // large SDP offers fit
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.MessagesPerSecond <= 0 {
		c.MessagesPerSecond = 50
	}
	if c.MessageBurst <= 0 {
		c.MessageBurst = 100
	}
	return c
}

type Server struct {
	upgrader websocket.Upgrader
	relay    *service.Relay
	authn    Authenticator // nil: anonymous, display identity taken from join
	cfg      Config

	mu      sync.Mutex
	conns   map[*wsConn]struct{}
	closing bool
}

func NewServer(relay *service.Relay, authn Authenticator, cfg Config) *Server {
	return &Server{
		relay: relay,
		authn: authn,
		cfg:   cfg.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*wsConn]struct{}),
	}
}

// HandleWS serves GET /ws?access_token=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	var ident *auth.Identity
	if s.authn != nil {
		id, err := s.authn.Authenticate(r.Context(), auth.TokenFromRequest(r))
		if err != nil {
			slog.Warn("ws auth failed", "remote", r.RemoteAddr, "err", err)
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		ident = &id
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := newWsConn(conn, domain.ConnectionID(uuid.NewString()), s.cfg.SendQueueSize)
	if !s.track(c) {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer s.untrack(c)

	l := logger.L().With("conn_id", string(c.id), "remote", r.RemoteAddr)
	if ident != nil {
		l = l.With("sub", ident.Subject)
	}
	ctx := logger.WithContext(r.Context(), l)
	l.Debug("ws connected")

	go s.writeLoop(c)
	_ = c.Send(protocol.Message{Type: protocol.TypeHello, Payload: protocol.HelloPayload{ConnectionID: string(c.id)}})

	s.readLoop(ctx, c, ident)

	// exactly one disconnect per connection, whatever ended the read loop
	_ = s.relay.Handle(ctx, c, service.Disconnect{})
	if err := c.Close(); err != nil {
		l.Debug("ws close failed", "err", err)
	}
	l.Debug("ws disconnected")
}

func (s *Server) readLoop(ctx context.Context, c *wsConn, ident *auth.Identity) {
	l := logger.FromContext(ctx)
	deadline := func() { _ = c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval)) }

	c.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	deadline()
	c.conn.SetPongHandler(func(string) error {
		deadline()
		return nil
	})
	limiter := rate.NewLimiter(rate.Limit(s.cfg.MessagesPerSecond), s.cfg.MessageBurst)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				l.Debug("ws read failed", "err", err)
			}
			return
		}
		deadline()

		if !limiter.Allow() {
			l.Warn("ws rate limit exceeded")
			c.closeWith(websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}

		ev, err := decodeEvent(data)
		if err != nil {
			l.Debug("ws bad frame", "err", err)
			_ = c.Send(badRequest())
			continue
		}
		if j, ok := ev.(service.Join); ok && ident != nil {
			j.DisplayIdentity = ident.DisplayName
			ev = j
		}

		if err := s.relay.Handle(ctx, c, ev); err != nil {
			l.Debug("relay rejected event", "err", err)
		}
	}
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteWait)); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (s *Server) track(c *wsConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c *wsConn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// Shutdown closes every open connection; each one still runs its disconnect
// cleanup through HandleWS. New upgrades are refused afterwards.
func (s *Server) Shutdown() {
	s.mu.Lock()
	s.closing = true
	conns := make([]*wsConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
}

// Open is the number of live connections.
func (s *Server) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
