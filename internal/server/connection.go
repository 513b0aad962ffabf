package server

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/padpad2004/poker-platform/internal/auth"
	"github.com/padpad2004/poker-platform/internal/metrics"
	"github.com/padpad2004/poker-platform/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one subscriber websocket. It implements session.Sink:
// the session layer pushes frames through Send, and client messages (chat)
// flow back through the read pump.
type Connection struct {
	conn      *websocket.Conn
	send      chan *session.Frame
	tableID   int64
	identity  *auth.Identity
	sessions  *session.Service
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection creates a connection wrapper. identity is nil for
// spectators.
func NewConnection(conn *websocket.Conn, tableID int64, identity *auth.Identity, sessions *session.Service, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:     conn,
		send:     make(chan *session.Frame, 256),
		tableID:  tableID,
		identity: identity,
		sessions: sessions,
		logger:   logger.WithPrefix("conn"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	metrics.OpenSockets.Inc()
	go c.writePump()
	go c.readPump()
}

// Close closes the connection.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
		metrics.OpenSockets.Dec()
	})
	return err
}

// Send queues a frame for the client. A full buffer drops the connection
// rather than stalling the table sweep.
func (c *Connection) Send(frame *session.Frame) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed during shutdown.
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- frame:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("connection send buffer full, closing")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// Done is closed once the connection tears down.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// clientMessage is what the peer may send: table chat.
type clientMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// readPump handles incoming messages from the client.
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg clientMessage
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing frames to the client.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(frame); err != nil {
				c.logger.Error("failed to write frame", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) handleMessage(msg *clientMessage) {
	switch msg.Type {
	case "chat":
		if c.identity == nil {
			c.sendError("not_authenticated", "Spectators cannot chat")
			return
		}
		text := strings.TrimSpace(msg.Message)
		if text == "" {
			return
		}
		c.sessions.Chat(c.tableID, c.identity.UserID, c.identity.Username, text)

	default:
		// Any other payload asks for a fresh state frame.
		if err := c.sessions.Rebroadcast(c.tableID); err != nil {
			c.logger.Debug("rebroadcast failed", "table", c.tableID, "error", err)
		}
	}
}

// sendError pushes an error frame to the client.
func (c *Connection) sendError(code, message string) {
	payload, err := json.Marshal(map[string]string{"code": code, "message": message})
	if err != nil {
		return
	}
	_ = c.Send(&session.Frame{Type: "error", TableID: c.tableID, Error: payload})
}
