package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

// Client represents a browser connected to the gateway
type Client struct {
	ID     string
	conn   *websocket.Conn
	logger *slog.Logger
	// Mutex serializes writes; gorilla connections allow one concurrent writer
	Mutex sync.Mutex
	done  chan struct{}
	once  sync.Once
}

// NewClient wraps an upgraded connection
func NewClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	id := ulid.Make().String()
	return &Client{
		ID:     id,
		conn:   conn,
		logger: logger.With("client_id", id),
		done:   make(chan struct{}),
	}
}

// Emit sends one event to this client
func (c *Client) Emit(event string, data any) error {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
	if err := c.conn.WriteJSON(outbound{Event: event, Data: data}); err != nil {
		return fmt.Errorf("write %s to client %s: %w", event, c.ID, err)
	}
	return nil
}

// EmitError reports a failure to this client only
func (c *Client) EmitError(msg string) {
	if err := c.Emit(EventError, ErrorEvent{Msg: msg}); err != nil {
		c.logger.Warn("failed to send error event", "error", err)
	}
}

// readLoop decodes envelopes until the connection fails, calling handle for each
func (c *Client) readLoop(handle func(Envelope)) {
	c.conn.SetReadLimit(MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("error reading from client", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.logger.Debug("ignoring non-text message", "type", messageType)
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.EmitError("Invalid message")
			continue
		}
		handle(env)
	}
}

// pingLoop keeps the connection alive until Close
func (c *Client) pingLoop() {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.Mutex.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteWait))
			c.Mutex.Unlock()
			if err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

// Close closes the connection
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
