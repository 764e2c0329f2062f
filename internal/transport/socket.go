// Package transport is the client side of the push channel: a single
// long-lived websocket over which the backend fans out room events.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mentor_chat/internal/subscription"
	"mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

var (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Envelope is the wire frame for pushed events. Data carries the exact REST
// response shape for the event's payload.
type Envelope struct {
	Event string          `json:"event"`
	Room  string          `json:"room"`
	Data  json.RawMessage `json:"data"`
}

type controlFrame struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

// Socket implements subscription.Transport over gorilla/websocket.
// Reconnection policy is the caller's concern: Dial may be called again
// after a drop, and joins requested while offline are replayed then.
type Socket struct {
	url   string
	token func() string
	log   logger.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	send     chan controlFrame
	done     chan struct{}
	seq      uint64
	handlers map[string]registration
	pending  map[string]struct{}
	joined   map[string]struct{}
}

type registration struct {
	id uint64
	fn subscription.Handler
}

func NewSocket(url string, token func() string, log logger.Logger) *Socket {
	return &Socket{
		url:      url,
		token:    token,
		log:      log,
		handlers: make(map[string]registration),
		pending:  make(map[string]struct{}),
		joined:   make(map[string]struct{}),
	}
}

// Dial connects and starts the read/write pumps. Joins queued while offline
// are flushed before Dial returns.
func (s *Socket) Dial(ctx context.Context) error {
	header := http.Header{}
	if s.token != nil {
		if t := s.token(); t != "" {
			header.Set("Authorization", "Bearer "+t)
		}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransportUnavailable, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.send = make(chan controlFrame, 16)
	s.done = make(chan struct{})
	rejoin := make([]string, 0, len(s.pending)+len(s.joined))
	for room := range s.joined {
		rejoin = append(rejoin, room)
	}
	for room := range s.pending {
		rejoin = append(rejoin, room)
		s.joined[room] = struct{}{}
		delete(s.pending, room)
	}
	send, done := s.send, s.done
	s.mu.Unlock()

	go s.readPump(conn, done)
	go s.writePump(conn, send, done)

	for _, room := range rejoin {
		select {
		case send <- controlFrame{Action: "join", Room: room}:
		case <-done:
			// dropped mid-flush; the rooms are back in pending for the next Dial
			return nil
		}
	}
	return nil
}

// Close tears the connection down. Joined rooms are remembered so a later
// Dial re-enters them.
func (s *Socket) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.teardownLocked()
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Join subscribes to a room. Offline, the join is queued and
// ErrNotConnected reports that it is not yet confirmed.
func (s *Socket) Join(_ context.Context, roomID string) error {
	s.mu.Lock()
	if s.conn == nil {
		s.pending[roomID] = struct{}{}
		s.mu.Unlock()
		return errors.ErrNotConnected
	}
	s.joined[roomID] = struct{}{}
	send, done := s.send, s.done
	s.mu.Unlock()

	// If the connection drops between the check above and the send, done
	// closes and teardown moves the room to pending; the next Dial replays
	// it. Never park a frame in an abandoned channel.
	select {
	case send <- controlFrame{Action: "join", Room: roomID}:
	case <-done:
	}
	return nil
}

func (s *Socket) Leave(_ context.Context, roomID string) error {
	s.mu.Lock()
	delete(s.pending, roomID)
	delete(s.joined, roomID)
	if s.conn == nil {
		s.mu.Unlock()
		return errors.ErrNotConnected
	}
	send, done := s.send, s.done
	s.mu.Unlock()

	// a dropped connection already left every room server-side
	select {
	case send <- controlFrame{Action: "leave", Room: roomID}:
	case <-done:
	}
	return nil
}

// On registers the handler for an event name, replacing any previous one:
// a single push must never be processed twice. The returned disposer only
// removes the handler it installed.
func (s *Socket) On(event string, h subscription.Handler) func() {
	s.mu.Lock()
	s.seq++
	id := s.seq
	s.handlers[event] = registration{id: id, fn: h}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// a replacement handler must survive disposal of the one it replaced
		if cur, ok := s.handlers[event]; ok && cur.id == id {
			delete(s.handlers, event)
		}
	}
}

func (s *Socket) readPump(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		if s.conn == conn {
			s.teardownLocked()
		}
		s.mu.Unlock()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
			default:
				s.log.Warn("push transport read failed", "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.log.Warn("dropping malformed push frame", "error", err)
			continue
		}

		s.mu.Lock()
		reg, ok := s.handlers[env.Event]
		s.mu.Unlock()
		if !ok {
			continue
		}
		reg.fn(env.Data)
	}
}

func (s *Socket) writePump(conn *websocket.Conn, send chan controlFrame, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				s.log.Warn("push transport write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// teardownLocked drops the live connection state but keeps joined rooms so
// they can be replayed on the next Dial.
func (s *Socket) teardownLocked() {
	if s.done != nil {
		select {
		case <-s.done:
		default:
			close(s.done)
		}
	}
	for room := range s.joined {
		s.pending[room] = struct{}{}
		delete(s.joined, room)
	}
	s.conn = nil
	s.send = nil
}
