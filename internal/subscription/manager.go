// Package subscription tracks which push room the client is listening to and
// guarantees that at most one room feeds the live conversation view.
package subscription

import (
	"context"
	"encoding/json"
	"sync"

	"mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

// Handler receives the raw payload of a single pushed event.
type Handler func(data json.RawMessage)

// Transport is the push collaborator. Join must not block when the
// connection is down: the implementation queues the join and completes it
// once connectivity is restored.
type Transport interface {
	Join(ctx context.Context, roomID string) error
	Leave(ctx context.Context, roomID string) error
	On(event string, h Handler) (off func())
	Connected() bool
}

type roomState int

const (
	stateIdle roomState = iota
	stateActive
)

type Manager struct {
	transport Transport
	log       logger.Logger

	mu        sync.Mutex
	room      string
	state     roomState
	disposers []func()
}

func NewManager(transport Transport, log logger.Logger) *Manager {
	return &Manager{
		transport: transport,
		log:       log,
	}
}

// Activate joins roomID and registers handlers for its events. If another
// room is currently joined it is fully deactivated first, so events can never
// be misfiled into the previous conversation's view. Re-activating the
// current room just swaps the handlers in place.
func (m *Manager) Activate(ctx context.Context, roomID string, handlers map[string]Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.room == roomID && m.state != stateIdle {
		m.registerLocked(handlers)
		return
	}

	m.deactivateLocked(ctx)

	// The room counts as active from here on: handlers are live and the
	// transport owns join delivery, replaying queued joins on reconnect.
	m.room = roomID
	m.state = stateActive
	m.registerLocked(handlers)

	if err := m.transport.Join(ctx, roomID); err != nil {
		m.log.Warn("room join not confirmed", "room", roomID, "error", err)
	}
}

// Deactivate leaves roomID if it is the active room. Handlers come off
// before the room is left so a frame in flight cannot fire a stale handler.
func (m *Manager) Deactivate(ctx context.Context, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.room != roomID {
		return
	}
	m.deactivateLocked(ctx)
}

// Active returns the currently joined room, if any.
func (m *Manager) Active() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.room, m.state != stateIdle
}

func (m *Manager) registerLocked(handlers map[string]Handler) {
	for _, off := range m.disposers {
		off()
	}
	m.disposers = m.disposers[:0]
	for event, h := range handlers {
		m.disposers = append(m.disposers, m.transport.On(event, h))
	}
}

func (m *Manager) deactivateLocked(ctx context.Context) {
	if m.state == stateIdle {
		return
	}
	for _, off := range m.disposers {
		off()
	}
	m.disposers = m.disposers[:0]

	if err := m.transport.Leave(ctx, m.room); err != nil {
		if err == errors.ErrNotConnected {
			m.log.Debug("leave skipped, transport offline", "room", m.room)
		} else {
			m.log.Warn("room leave not confirmed", "room", m.room, "error", err)
		}
	}
	m.room = ""
	m.state = stateIdle
}
