package chathub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"pairchat/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// WebSocketClient implements Client over a gorilla connection.
type WebSocketClient struct {
	UserID string
	Lang   string
	Conn   *websocket.Conn
	Hub    *Engine

	send      chan models.Event
	done      chan struct{}
	closeOnce sync.Once
	log       *slog.Logger
}

func NewWebSocketClient(hub *Engine, conn *websocket.Conn, userID, lang string, bufferSize int, log *slog.Logger) *WebSocketClient {
	return &WebSocketClient{
		UserID: userID,
		Lang:   lang,
		Conn:   conn,
		Hub:    hub,
		send:   make(chan models.Event, bufferSize),
		done:   make(chan struct{}),
		log:    log.With("user_id", userID),
	}
}

func (c *WebSocketClient) GetUserID() string { return c.UserID }
func (c *WebSocketClient) Language() string  { return c.Lang }

// Deliver never blocks. A client whose buffer is full is too slow to keep up and
// gets disconnected.
func (c *WebSocketClient) Deliver(evt models.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- evt:
		return true
	default:
		c.log.Warn("Send buffer full, closing connection", "event", evt.Name)
		c.Close()
		return false
	}
}

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops the write pump, which closes the connection and in turn ends the read pump.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump decodes frames and hands them to the engine one at a time, so events from
// one connection are handled in arrival order.
func (c *WebSocketClient) readPump() {
	ctx := context.Background()
	defer func() {
		c.Hub.Disconnect(ctx, c)
		c.Close()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("Unexpected websocket close", "error", err)
			}
			return
		}

		var frame models.InboundFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.log.Debug("Dropping undecodable frame", "error", err)
			c.Hub.reportError(c.UserID, "", wrapError(ErrValidation, "error.invalid_payload", err))
			continue
		}

		c.Hub.Dispatch(ctx, c.UserID, frame)
	}
}

// writePump writes queued events to the socket and keeps it alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case evt := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteJSON(evt); err != nil {
				c.log.Debug("Write failed", "event", evt.Name, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
