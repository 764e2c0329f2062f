package devserver

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mentor_chat/pkg/logger"
)

var (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = int64(4096)
)

type envelope struct {
	Event string          `json:"event"`
	Room  string          `json:"room"`
	Data  json.RawMessage `json:"data"`
}

type controlFrame struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

type client struct {
	conn  *websocket.Conn
	send  chan envelope
	rooms map[string]bool
	hub   *Hub
}

// Hub fans pushed events out to every connection joined to a room.
type Hub struct {
	log logger.Logger

	mu      sync.Mutex
	clients map[*client]bool
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[*client]bool),
	}
}

// Serve owns conn for its lifetime: it registers the client, pumps frames
// both ways and unregisters on disconnect.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &client{
		conn:  conn,
		send:  make(chan envelope, 32),
		rooms: make(map[string]bool),
		hub:   h,
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go c.writePump()
	c.readPump()
}

// Broadcast delivers one event to every client currently in room.
func (h *Hub) Broadcast(room, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("failed to marshal push payload", "event", event, "error", err)
		return
	}
	env := envelope{Event: event, Room: room, Data: raw}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.rooms[room] {
			continue
		}
		select {
		case c.send <- env:
		default:
			// slow consumer, drop the connection
			close(c.send)
			delete(h.clients, c)
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame controlFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.hub.log.Warn("ignoring malformed control frame", "error", err)
			continue
		}

		c.hub.mu.Lock()
		switch frame.Action {
		case "join":
			c.rooms[frame.Room] = true
		case "leave":
			delete(c.rooms, frame.Room)
		}
		c.hub.mu.Unlock()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
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
