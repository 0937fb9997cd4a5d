package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Outbound buffer per channel; a client that cannot drain this is broken.
	sendBufferSize = 32
)

// Client is one live push channel: the middleman between a websocket
// connection and the registry.
type Client struct {
	ID     string
	UserID int64

	registry  *Registry
	conn      *websocket.Conn
	send      chan []byte
	logger    *zap.Logger
	closeOnce sync.Once
}

// NewClient wraps an upgraded connection for userID.
func NewClient(registry *Registry, conn *websocket.Conn, userID int64, logger *zap.Logger) *Client {
	return &Client{
		ID:       uuid.New().String(),
		UserID:   userID,
		registry: registry,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		logger:   logger,
	}
}

func (c *Client) closeConn() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// ReadPump pumps inbound frames until the peer goes away, then unregisters.
// Inbound text frames are echoed back so clients can probe the channel.
func (c *Client) ReadPump() {
	defer func() {
		c.registry.Unregister(c)
		c.closeConn()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error",
					zap.String("connection_id", c.ID),
					zap.Int64("user_id", c.UserID),
					zap.Error(err),
				)
			}
			return
		}

		c.registry.Send(c, Event{Event: "ECHO", Message: "Received: " + string(message)})
	}
}

// WritePump pumps queued messages to the peer and keeps the connection alive
// with pings. Runs until the send channel is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The registry closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("WebSocket write error",
					zap.String("connection_id", c.ID),
					zap.Int64("user_id", c.UserID),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
