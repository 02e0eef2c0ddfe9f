package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/btscan/internal/discovery"
	"github.com/muurk/btscan/internal/logging"
	"github.com/muurk/btscan/internal/report"
	"github.com/muurk/btscan/internal/session"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Outbound messages buffered per client before drops
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API binds to loopback by default and carries no credentials.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub fans session events out to WebSocket clients. It implements
// session.Observer; each event is sent as a report.Envelope.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	now     func() time.Time
}

var _ session.Observer = (*Hub)(nil)

type client struct {
	hub        *Hub
	conn       *websocket.Conn
	remoteAddr string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		now:     time.Now,
	}
}

func (h *Hub) StateChanged(state session.State) {
	h.Broadcast(report.TypeState, report.NewState(state, h.now()))
}

func (h *Hub) DeviceListChanged(devices []discovery.Device) {
	h.Broadcast(report.TypeDevices, report.NewDeviceList(devices, h.now()))
}

func (h *Hub) ScanEnded(result session.Result) {
	h.Broadcast(report.TypeScan, report.NewScan(result, h.now()))
}

func (h *Hub) ScanFailed(err *session.Error) {
	h.Broadcast(report.TypeFailure, report.NewFailure(err, h.now()))
}

// Broadcast sends one envelope to every client. Clients whose buffer is
// full miss the message.
func (h *Hub) Broadcast(kind string, data any) {
	msg, err := encode(kind, data)
	if err != nil {
		logging.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.trySend(msg)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
		_ = c.conn.Close()
	}
}

// register queues first on the client and then adds it. Holding the lock
// across both keeps any Broadcast from reaching the client before first.
func (h *Hub) register(c *client, first func() ([]byte, error)) {
	h.mu.Lock()
	if msg, err := first(); err == nil {
		c.trySend(msg)
	} else {
		logging.Error("Failed to marshal snapshot", zap.Error(err))
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	logging.Debug("WebSocket client connected",
		zap.String("remote_addr", c.remoteAddr),
		zap.Int("clients", h.ClientCount()),
	)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
	logging.Debug("WebSocket client disconnected",
		zap.String("remote_addr", c.remoteAddr),
		zap.Int("clients", h.ClientCount()),
	)
}

func encode(kind string, data any) ([]byte, error) {
	return json.Marshal(report.Envelope{Type: kind, Data: data})
}

// handleWebSocket upgrades the request and sends the current snapshot before
// any live event.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &client{
		hub:        s.hub,
		conn:       conn,
		remoteAddr: r.RemoteAddr,
		send:       make(chan []byte, sendBuffer),
	}
	s.hub.register(c, func() ([]byte, error) {
		return encode(report.TypeSnapshot, report.NewSnapshot(s.ctrl.State(), s.ctrl.Snapshot()))
	})

	go c.writePump()
	go c.readPump()
}

func (c *client) trySend(msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		logging.Debug("WebSocket client too slow, dropping message", zap.String("remote_addr", c.remoteAddr))
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump discards client messages; it exists to process control frames
// and notice disconnects.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn("WebSocket read error",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
