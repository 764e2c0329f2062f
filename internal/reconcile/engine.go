// Package reconcile folds the three racing sources of chat state — REST
// snapshots, local optimistic writes and pushed events — into one ordered,
// duplicate-free view.
package reconcile

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"mentor_chat/internal/domain"
	"mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

// DefaultCorrelationWindow bounds how far apart an optimistic entry and a
// pushed confirmation may be timestamped while still being treated as the
// same message. A heuristic: two identical texts from the same sender inside
// the window collapse into one entry.
const DefaultCorrelationWindow = 5 * time.Second

type Option func(*Engine)

func WithCorrelationWindow(w time.Duration) Option {
	return func(e *Engine) {
		if w > 0 {
			e.window = w
		}
	}
}

// WithRejectedSink receives messages pushed for rooms other than the active
// conversation, e.g. to feed an unread counter. Default is to drop them.
func WithRejectedSink(sink func(domain.Message)) Option {
	return func(e *Engine) {
		e.rejected = sink
	}
}

// Engine owns the ordered message list of the active conversation. All entry
// points are safe for concurrent use; the push read loop, REST callbacks and
// the UI all funnel through the same mutex, so the merge rules below are the
// only ordering that matters.
type Engine struct {
	log      logger.Logger
	window   time.Duration
	rejected func(domain.Message)

	mu       sync.Mutex
	active   string
	messages []domain.Message
}

func NewEngine(log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		log:    log,
		window: DefaultCorrelationWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetActive marks conversationID as the conversation the view is showing.
// The list is cleared; a Seed for the same id is expected to follow.
func (e *Engine) SetActive(conversationID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = conversationID
	e.messages = nil
}

// Active returns the conversation id the engine currently accepts input for.
func (e *Engine) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Seed replaces the whole list with a snapshot. It is the only operation
// allowed to shrink the list. A snapshot tagged with a conversation that is
// no longer active is refused with ErrStaleSnapshot so a slow fetch can never
// overwrite the conversation the user switched to.
func (e *Engine) Seed(conversationID string, msgs []domain.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if conversationID != e.active {
		return errors.ErrStaleSnapshot
	}

	e.messages = make([]domain.Message, 0, len(msgs))
	seen := make(map[uuid.UUID]struct{}, len(msgs))
	for _, m := range msgs {
		if m.ID != uuid.Nil {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
		}
		m.Origin = domain.OriginConfirmed
		m.ConversationID = conversationID
		e.messages = append(e.messages, m)
	}
	return nil
}

// AppendOptimistic puts a locally-sent message at the tail before the server
// has confirmed it, and returns the temp id the caller must keep to confirm
// or roll it back.
func (e *Engine) AppendOptimistic(msg domain.Message) (uuid.UUID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == "" || msg.ConversationID != e.active {
		return uuid.Nil, errors.ErrNoActiveConversation
	}

	msg.TempID = uuid.New()
	msg.ID = uuid.Nil
	msg.Origin = domain.OriginOptimistic
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	e.messages = append(e.messages, msg)
	return msg.TempID, nil
}

// MergeIncoming folds one pushed message into the list. The steps, in order:
// drop if the message belongs to another conversation; no-op if its server id
// is already present (the transport may redeliver); replace a correlated
// optimistic entry in place; otherwise append at the tail.
func (e *Engine) MergeIncoming(msg domain.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if msg.ConversationID != e.active {
		if e.rejected != nil {
			e.rejected(msg)
		}
		return
	}
	if msg.ID == uuid.Nil {
		e.log.Warn("dropping pushed message without server id", "conversation", msg.ConversationID)
		return
	}
	e.mergeLocked(msg)
}

// ConfirmOptimistic replaces the optimistic entry identified by tempID with
// the server's response, keeping its position. Safe to call after a push for
// the same server id already landed: the id check turns the second
// replacement into a no-op.
func (e *Engine) ConfirmOptimistic(tempID uuid.UUID, serverMsg domain.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if serverMsg.ConversationID != e.active || serverMsg.ID == uuid.Nil {
		return
	}
	if e.hasServerID(serverMsg.ID) {
		// the push won the race and already replaced the optimistic entry
		e.dropOptimisticLocked(tempID)
		return
	}
	for i := range e.messages {
		if e.messages[i].Origin == domain.OriginOptimistic && e.messages[i].TempID == tempID {
			serverMsg.Origin = domain.OriginConfirmed
			serverMsg.TempID = uuid.Nil
			e.messages[i] = serverMsg
			return
		}
	}
	// optimistic entry already gone; treat the response like a push
	e.mergeLocked(serverMsg)
}

// FailOptimistic removes a pending entry after the write was rejected. The
// caller restores the composer input. Returns false when nothing matched.
func (e *Engine) FailOptimistic(tempID uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropOptimisticLocked(tempID)
}

// Messages returns a copy of the ordered list.
func (e *Engine) Messages() []domain.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Message, len(e.messages))
	copy(out, e.messages)
	return out
}

func (e *Engine) mergeLocked(msg domain.Message) {
	if e.hasServerID(msg.ID) {
		return
	}

	for i := range e.messages {
		m := e.messages[i]
		if m.Origin != domain.OriginOptimistic {
			continue
		}
		if m.SenderID == msg.SenderID && m.Content == msg.Content && within(m.CreatedAt, msg.CreatedAt, e.window) {
			msg.Origin = domain.OriginConfirmed
			msg.TempID = uuid.Nil
			e.messages[i] = msg
			return
		}
	}

	msg.Origin = domain.OriginConfirmed
	msg.TempID = uuid.Nil
	e.messages = append(e.messages, msg)
}

func (e *Engine) hasServerID(id uuid.UUID) bool {
	for i := range e.messages {
		if e.messages[i].ID == id {
			return true
		}
	}
	return false
}

func (e *Engine) dropOptimisticLocked(tempID uuid.UUID) bool {
	for i := range e.messages {
		if e.messages[i].Origin == domain.OriginOptimistic && e.messages[i].TempID == tempID {
			e.messages = append(e.messages[:i], e.messages[i+1:]...)
			return true
		}
	}
	return false
}

func within(a, b time.Time, window time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d < window
}
