package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/signal-relay/internal/domain"
	"github.com/cwrk-planet/signal-relay/internal/protocol"
)

var (
	errConnClosed    = errors.New("connection closed")
	errSendQueueFull = errors.New("send queue full")
)

// wsConn is one peer's channel. Only writeLoop writes data frames; Send just
// queues.
type wsConn struct {
	id   domain.ConnectionID
	conn *websocket.Conn

	send      chan protocol.Message
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newWsConn(c *websocket.Conn, id domain.ConnectionID, queue int) *wsConn {
	return &wsConn{
		id:     id,
		conn:   c,
		send:   make(chan protocol.Message, queue),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() domain.ConnectionID { return c.id }

func (c *wsConn) Send(msg protocol.Message) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.closed:
		return errConnClosed
	default:
		return errSendQueueFull
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// closeWith sends a close frame before tearing the socket down.
func (c *wsConn) closeWith(code int, text string) {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
	_ = c.Close()
}
