package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomvassey/hearth-core/internal/device"
	"github.com/tomvassey/hearth-core/internal/infrastructure/config"
	"github.com/tomvassey/hearth-core/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeInitialState = "initial_state"
	WSTypeDeviceUpdate = "device_update"
	WSTypePing         = "ping"
	WSTypePong         = "pong"
	WSTypeError        = "error"
)

// WSMessage represents a message sent to/from a WebSocket client.
//
// Outbound state messages carry the commit sequence number: initial_state
// carries the snapshot's sequence, device_update the event's. A client that
// applies the snapshot and then every update with a higher sequence sees
// each mutation exactly once.
type WSMessage struct {
	Type          string          `json:"type"`
	ID            string          `json:"id,omitempty"`
	Seq           uint64          `json:"seq,omitempty"`
	Devices       []device.Device `json:"devices,omitempty"`
	DeviceID      string          `json:"device_id,omitempty"`
	UpdatedFields device.Fields   `json:"updated_fields,omitempty"`
	Timestamp     string          `json:"timestamp,omitempty"`
	Payload       any             `json:"payload,omitempty"`
}

// Hub fans the store's event stream out to WebSocket clients.
//
// Registration takes a sequence-stamped snapshot under the hub write lock
// and queues it as the client's first message; event delivery holds the read
// lock and skips events at or below a client's snapshot sequence. Because
// the snapshot is taken while holding the hub lock, a client either receives
// an event directly or finds its effect already folded into the snapshot,
// never both and never neither.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	store   *device.Store
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// snapshotSeq is the sequence number of the initial snapshot sent at
	// registration. Events at or below it are already in the snapshot and
	// must not be delivered again. Written once before the client is added
	// to the hub; the hub lock orders it against broadcast reads.
	snapshotSeq uint64
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub backed by the given store.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger, store *device.Store) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run consumes the store's event stream and broadcasts each event to
// connected clients. It blocks until the context is cancelled, then
// disconnects all clients.
func (h *Hub) Run(ctx context.Context) {
	events := h.store.Events()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev := <-events:
			h.broadcast(ev)
		}
	}
}

// Register adds a client to the hub and queues its initial state snapshot.
//
// The snapshot must be taken while holding the hub write lock: a broadcast
// in flight holds the read lock, so the snapshot here is taken either
// before that event committed (and the client, now registered, receives it)
// or after delivery finished (and the snapshot already contains it).
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()

	devices, seq := h.store.Snapshot()
	client.snapshotSeq = seq

	msg := WSMessage{
		Type:      WSTypeInitialState,
		Seq:       seq,
		Devices:   devices,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.mu.Unlock()
		h.logger.Error("failed to marshal initial state", "error", err)
		return
	}

	// The send channel is freshly created and buffered, so this never blocks.
	client.send <- data
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "clients", h.ClientCount(), "snapshot_seq", seq)
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// broadcast delivers a device update to every client whose snapshot does not
// already contain it. Delivery is non-blocking per client; a slow client
// with a full buffer loses the message rather than stalling the stream.
func (h *Hub) broadcast(ev device.Event) {
	msg := WSMessage{
		Type:          WSTypeDeviceUpdate,
		Seq:           ev.Seq,
		DeviceID:      ev.DeviceID,
		UpdatedFields: ev.Changed,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.clients {
		if ev.Seq <= client.snapshotSeq {
			continue
		}
		client.trySend(data)
		sent++
	}
	if sent > 0 {
		h.logger.Debug("broadcast sent", "device_id", ev.DeviceID, "seq", ev.Seq, "recipients", sent)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// handleWebSocket upgrades the HTTP connection to a WebSocket connection.
// Every connection, including a reconnect, starts with a fresh snapshot.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, s.wsCfg.SendBuffer),
	}

	s.hub.Register(client)

	// Start read/write pumps
	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads messages from the WebSocket connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps connection alive
		// even if browser doesn't respond to protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during broadcast)
// and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// sendResponse sends a response message to the client.
// Routes through trySend to safely handle closed channels during shutdown.
func (c *WSClient) sendResponse(id, msgType string, payload any) {
	msg := WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error message to the client.
func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
