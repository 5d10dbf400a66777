package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/youth-scoreboard/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Time allowed to build the snapshot sent on subscribe
	snapshotTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Spectator pages are served from anywhere
		return true
	},
}

// ViewSource provides the current public view of a match
type ViewSource interface {
	PublicByCode(ctx context.Context, code string) (*domain.PublicView, error)
}

// Client represents a WebSocket client connection
type Client struct {
	id     string
	hub    *Hub
	views  ViewSource
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger
}

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type      string `json:"type"`
	MatchCode string `json:"match_code,omitempty"`
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, views ViewSource, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		id:     uuid.New().String(),
		hub:    hub,
		views:  views,
		conn:   conn,
		send:   make(chan []byte, 256),
		logger: logger,
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			break
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.logger.Warn("invalid message format", "error", err)
			c.sendError("invalid message format")
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// handleMessage processes incoming client messages
func (c *Client) handleMessage(msg *ClientMessage) {
	code := domain.NormalizeCode(msg.MatchCode)

	switch msg.Type {
	case MessageTypeSubscribe:
		if !domain.ValidCode(code) {
			c.sendError("valid match_code required for subscribe")
			return
		}
		var view *domain.PublicView
		if c.views != nil {
			ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
			v, err := c.views.PublicByCode(ctx, code)
			cancel()
			if err != nil {
				c.sendError(err.Error())
				return
			}
			view = v
		}
		c.hub.Subscribe(c, code)
		c.sendMessage(Message{Type: MessageTypeSubscribed, MatchCode: code, Data: map[string]string{"status": "ok"}})
		if view != nil {
			c.sendMessage(Message{Type: MessageTypeMatchUpdate, MatchCode: code, Data: view})
		}

	case MessageTypeUnsubscribe:
		if code != "" {
			c.hub.Unsubscribe(c, code)
			c.sendMessage(Message{Type: MessageTypeUnsubbed, MatchCode: code, Data: map[string]string{"status": "ok"}})
		}

	case MessageTypePing:
		c.sendMessage(Message{Type: MessageTypePong})

	default:
		c.logger.Debug("unknown message type", "type", msg.Type)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendMessage(msg Message) {
	msg.Timestamp = time.Now()
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal message", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(errMsg string) {
	c.sendMessage(Message{
		Type: MessageTypeError,
		Data: map[string]string{"error": errMsg},
	})
}

// ServeWs handles WebSocket requests from spectators
func ServeWs(hub *Hub, views ViewSource, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(hub, views, conn, logger)
	hub.Register(client)

	// Start client goroutines
	go client.writePump()
	go client.readPump()

	logger.Debug("new websocket connection", "client_id", client.id)
}
