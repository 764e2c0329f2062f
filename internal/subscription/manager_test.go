package subscription

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

type fakeTransport struct {
	connected bool
	joined    []string
	left      []string
	handlers  map[string]Handler
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{connected: true, handlers: make(map[string]Handler)}
}

func (f *fakeTransport) Join(_ context.Context, roomID string) error {
	if !f.connected {
		return errors.ErrNotConnected
	}
	f.joined = append(f.joined, roomID)
	return nil
}

func (f *fakeTransport) Leave(_ context.Context, roomID string) error {
	if !f.connected {
		return errors.ErrNotConnected
	}
	f.left = append(f.left, roomID)
	return nil
}

func (f *fakeTransport) On(event string, h Handler) func() {
	f.handlers[event] = h
	return func() {
		if f.handlers[event] != nil {
			delete(f.handlers, event)
		}
	}
}

func (f *fakeTransport) Connected() bool { return f.connected }

func (f *fakeTransport) push(event string, payload string) {
	if h, ok := f.handlers[event]; ok {
		h(json.RawMessage(payload))
	}
}

func TestActivateJoinsRoom(t *testing.T) {
	tr := newFakeTransport()
	m := NewManager(tr, logger.NewNop())

	m.Activate(context.Background(), "cohort-7", map[string]Handler{"newMessage": func(json.RawMessage) {}})

	assert.Equal(t, []string{"cohort-7"}, tr.joined)
	room, ok := m.Active()
	assert.True(t, ok)
	assert.Equal(t, "cohort-7", room)
}

func TestActivateSwitchLeavesPreviousRoomFirst(t *testing.T) {
	tr := newFakeTransport()
	m := NewManager(tr, logger.NewNop())

	m.Activate(context.Background(), "a", map[string]Handler{"newMessage": func(json.RawMessage) {}})
	m.Activate(context.Background(), "b", map[string]Handler{"newMessage": func(json.RawMessage) {}})

	assert.Equal(t, []string{"a"}, tr.left)
	assert.Equal(t, []string{"a", "b"}, tr.joined)
	room, _ := m.Active()
	assert.Equal(t, "b", room)
}

func TestHandlerRegistrationReplaces(t *testing.T) {
	tr := newFakeTransport()
	m := NewManager(tr, logger.NewNop())

	var first, second int
	m.Activate(context.Background(), "a", map[string]Handler{
		"newMessage": func(json.RawMessage) { first++ },
	})
	// re-activating the same room must replace, not stack
	m.Activate(context.Background(), "a", map[string]Handler{
		"newMessage": func(json.RawMessage) { second++ },
	})

	tr.push("newMessage", `{}`)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, []string{"a"}, tr.joined, "re-activation must not rejoin")
}

func TestDeactivateRemovesHandlersBeforeLeaving(t *testing.T) {
	tr := newFakeTransport()
	m := NewManager(tr, logger.NewNop())

	var calls int
	m.Activate(context.Background(), "a", map[string]Handler{
		"newMessage": func(json.RawMessage) { calls++ },
	})
	m.Deactivate(context.Background(), "a")

	tr.push("newMessage", `{}`)
	assert.Equal(t, 0, calls)
	assert.Equal(t, []string{"a"}, tr.left)

	_, ok := m.Active()
	assert.False(t, ok)
}

func TestDeactivateIgnoresForeignRoom(t *testing.T) {
	tr := newFakeTransport()
	m := NewManager(tr, logger.NewNop())

	m.Activate(context.Background(), "a", nil)
	m.Deactivate(context.Background(), "b")

	room, ok := m.Active()
	assert.True(t, ok)
	assert.Equal(t, "a", room)
	assert.Empty(t, tr.left)
}

func TestActivateWhileDisconnectedDoesNotBlockOrFail(t *testing.T) {
	tr := newFakeTransport()
	tr.connected = false
	m := NewManager(tr, logger.NewNop())

	var calls int
	m.Activate(context.Background(), "a", map[string]Handler{
		"newMessage": func(json.RawMessage) { calls++ },
	})

	// join is queued by the transport; handlers are live regardless
	room, ok := m.Active()
	assert.True(t, ok)
	assert.Equal(t, "a", room)
	tr.push("newMessage", `{}`)
	assert.Equal(t, 1, calls)
}

func TestQueuedJoinRoomStaysActiveThroughReconnect(t *testing.T) {
	tr := newFakeTransport()
	tr.connected = false
	m := NewManager(tr, logger.NewNop())

	var calls int
	m.Activate(context.Background(), "a", map[string]Handler{
		"newMessage": func(json.RawMessage) { calls++ },
	})
	assert.Empty(t, tr.joined, "join must be queued, not delivered")

	// the transport reconnects and replays the queued join on its own
	tr.connected = true
	tr.joined = append(tr.joined, "a")

	room, ok := m.Active()
	assert.True(t, ok)
	assert.Equal(t, "a", room)
	tr.push("newMessage", `{}`)
	assert.Equal(t, 1, calls)

	// the manager still owns the room: deactivation leaves it cleanly
	m.Deactivate(context.Background(), "a")
	assert.Equal(t, []string{"a"}, tr.left)
	_, ok = m.Active()
	assert.False(t, ok)
}
