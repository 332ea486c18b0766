// Package wshub implements the WebSocket fan-out and subscription hub
// described in spec §4.2: connection lifecycle, per-channel subscription
// sets, broadcast fan-out, and heartbeat reaping.
package wshub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const reapInterval = 30 * time.Second

// Hub owns the list of ClientStates exclusively, per spec §3 ("the
// WebSocket Hub exclusively owns the list of ClientStates").
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	upgrader websocket.Upgrader
	logger   *zap.Logger
	idGen    func() string

	stop chan struct{}
	once sync.Once
}

// NewHub constructs a Hub. idGen produces client_id values (e.g. a nanoid
// generator); when nil a timestamp-based fallback is used.
func NewHub(logger *zap.Logger, idGen func() string) *Hub {
	if idGen == nil {
		idGen = func() string {
			return time.Now().Format("20060102T150405.000000000")
		}
	}

	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
		logger: logger.With(zap.String("component", "wshub")),
		idGen:  idGen,
		stop:   make(chan struct{}),
	}
}

// Run drives client registration/deregistration and the heartbeat reaper.
// It blocks until Shutdown is called.
func (h *Hub) Run() {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", zap.String("client_id", c.id), zap.Int("count", count))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", zap.String("client_id", c.id), zap.Int("count", count))

		case <-ticker.C:
			h.reapStale()

		case <-h.stop:
			h.closeAll()

			return
		}
	}
}

// Shutdown stops Run and closes every connected client with a close frame,
// per spec §4.6 graceful-shutdown requirements.
func (h *Hub) Shutdown() error {
	h.once.Do(func() {
		close(h.stop)
	})

	return nil
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}

func (h *Hub) reapStale() {
	h.mu.RLock()

	var stale []*Client

	for _, c := range h.clients {
		if c.idleSince() > pingTimeout {
			stale = append(stale, c)
		}
	}

	h.mu.RUnlock()

	if len(stale) == 0 {
		return
	}

	h.mu.Lock()

	for _, c := range stale {
		if _, ok := h.clients[c.id]; ok {
			delete(h.clients, c.id)
			close(c.send)
		}
	}

	h.mu.Unlock()

	h.logger.Info("reaped stale websocket clients", zap.Int("count", len(stale)))
}

// ServeHTTP upgrades the connection, emits the welcome frame, then spawns
// the client's read/write pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))

		return
	}

	client := newClient(h.idGen(), h, conn)

	h.register <- client

	welcome := welcomeMessage{
		Type:              "welcome",
		ClientID:          client.id,
		AvailableChannels: ValidChannels,
		Timestamp:         nowMillis(),
	}

	client.sendJSON(welcome)

	go client.writePump()
	go client.readPump(h.logger)
}

// Broadcast serializes payload and fans it out to every client subscribed
// to channel, in parallel, dropping (without logging) any client whose
// send buffer is full or already torn down (spec §4.2).
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal broadcast payload", zap.String("channel", channel), zap.Error(err))

		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))

	for _, c := range h.clients {
		if c.isSubscribed(channel) {
			targets = append(targets, c)
		}
	}

	h.mu.RUnlock()

	var wg sync.WaitGroup

	for _, c := range targets {
		wg.Add(1)

		go func(c *Client) {
			defer wg.Done()
			c.trySend(data)
		}(c)
	}

	wg.Wait()
}

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
