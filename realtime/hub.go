// Package realtime pushes office events to connected browsers over websockets.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"legalflow/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
	sendBuffer = 64
)

// Message is the frame written to clients.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client is one websocket connection bound to an office.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	officeID string
	userID   string
	send     chan Message
}

// Hub tracks connected clients per office and fans events out to them.
// It implements services.Publisher.
type Hub struct {
	mu      sync.RWMutex
	offices map[string]map[*Client]struct{}

	broadcast chan services.Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewHub() *Hub {
	return &Hub{
		offices:   make(map[string]map[*Client]struct{}),
		broadcast: make(chan services.Event, 256),
		done:      make(chan struct{}),
	}
}

// Run delivers published events until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case ev := <-h.broadcast:
			h.deliver(ev)
		case <-h.done:
			return
		}
	}
}

func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Publish queues an event for the clients of its office. Events are dropped
// when the queue is full.
func (h *Hub) Publish(ev services.Event) {
	if ev.OfficeID == "" {
		return
	}
	select {
	case h.broadcast <- ev:
	default:
		log.Warn().Str("type", ev.Type).Str("office_id", ev.OfficeID).Msg("Realtime queue full, event dropped")
	}
}

func (h *Hub) deliver(ev services.Event) {
	msg := Message{Type: ev.Type, Data: ev.Data, Timestamp: time.Now()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.offices[ev.OfficeID] {
		select {
		case c.send <- msg:
		default:
			// Slow consumer
			h.removeLocked(c)
		}
	}
}

// Register attaches a client to its office.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.offices[c.officeID]
	if !ok {
		set = make(map[*Client]struct{})
		h.offices[c.officeID] = set
	}
	set[c] = struct{}{}
	log.Debug().Str("office_id", c.officeID).Str("user_id", c.userID).Msg("Realtime client connected")
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	set, ok := h.offices[c.officeID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.offices, c.officeID)
	}
}

// Count returns the number of clients connected for an office.
func (h *Hub) Count(officeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.offices[officeID])
}

// NewClient wraps an upgraded connection. conn may be nil in tests.
func NewClient(h *Hub, conn *websocket.Conn, officeID, userID string) *Client {
	return &Client{hub: h, conn: conn, officeID: officeID, userID: userID, send: make(chan Message, sendBuffer)}
}

// Serve registers the client and pumps frames until the connection closes.
func (c *Client) Serve() {
	c.hub.Register(c)
	c.send <- Message{Type: "connection", Data: map[string]string{"status": "connected"}, Timestamp: time.Now()}
	go c.writePump()
	c.readPump()
}

// readPump only watches for close and pong frames; clients never send data.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("office_id", c.officeID).Msg("Realtime connection closed")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				log.Error().Err(err).Str("type", msg.Type).Msg("Failed to encode realtime message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
