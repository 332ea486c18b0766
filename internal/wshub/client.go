package wshub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
	pingTimeout    = 300 * time.Second
)

// Client is one accepted WebSocket connection, tracked as a ClientState
// per spec §3 (client_id, subscribed_channels, connected_at, last_ping).
type Client struct {
	id          string
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time

	mu         sync.Mutex
	subscribed map[string]struct{}
	lastPing   time.Time
}

func newClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	now := time.Now()

	return &Client{
		id:          id,
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: now,
		subscribed:  make(map[string]struct{}),
		lastPing:    now,
	}
}

func (c *Client) isSubscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.subscribed[channel]

	return ok
}

func (c *Client) touchPing() {
	c.mu.Lock()
	c.lastPing = time.Now()
	c.mu.Unlock()
}

func (c *Client) idleSince() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return time.Since(c.lastPing)
}

func (c *Client) trySend(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// writePump flushes queued frames to the socket.
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}

	c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
}

// readPump processes inbound subscribe/unsubscribe/ping frames until the
// connection closes, then unregisters the client.
func (c *Client) readPump(logger *zap.Logger) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("websocket read error", zap.String("client_id", c.id), zap.Error(err))
			}

			return
		}

		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg inboundMessage

	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("Invalid subscription message format", nil)

		return
	}

	switch msg.Action {
	case "subscribe":
		c.handleSubscribe(msg.Channel)
	case "unsubscribe":
		c.handleUnsubscribe(msg.Channel)
	case "ping":
		c.handlePing()
	default:
		c.sendError("unknown action: "+msg.Action, ValidChannels)
	}
}

func (c *Client) handleSubscribe(channel string) {
	if !isValidChannel(channel) {
		c.sendError("unknown channel: "+channel, ValidChannels)

		return
	}

	c.mu.Lock()
	c.subscribed[channel] = struct{}{}
	c.mu.Unlock()

	c.sendJSON(subscribedMessage{Type: "subscribed", Channel: channel, Timestamp: nowMillis()})
}

func (c *Client) handleUnsubscribe(channel string) {
	c.mu.Lock()
	delete(c.subscribed, channel)
	c.mu.Unlock()

	c.sendJSON(unsubscribedMessage{Type: "unsubscribed", Channel: channel, Timestamp: nowMillis()})
}

func (c *Client) handlePing() {
	c.touchPing()
	c.sendJSON(pongMessage{Type: "pong", Timestamp: nowMillis()})
}

func (c *Client) sendError(message string, validChannels []string) {
	c.sendJSON(errorMessage{Type: "error", Message: message, ValidChannels: validChannels, Timestamp: nowMillis()})
}

func (c *Client) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	c.trySend(data)
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
