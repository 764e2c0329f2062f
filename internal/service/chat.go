package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"mentor_chat/internal/api"
	"mentor_chat/internal/directory"
	"mentor_chat/internal/domain"
	"mentor_chat/internal/reconcile"
	"mentor_chat/internal/subscription"
	"mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

// MessageAPI is the slice of the REST collaborator the chat service needs.
type MessageAPI interface {
	GetMessages(ctx context.Context, conversationType domain.ConversationKind, roomID string) ([]domain.Message, error)
	SendMessage(ctx context.Context, req api.SendMessageRequest) (domain.Message, error)
	DeleteConversation(ctx context.Context, conversationType domain.ConversationKind, roomID string) error
}

type ChatService interface {
	// OpenConversation resolves the selection, joins its room and kicks off
	// the snapshot fetch. The fetch completes asynchronously; a snapshot
	// arriving after another conversation became active is discarded.
	OpenConversation(ctx context.Context, sel domain.Selection) error
	// Send appends the message optimistically, submits the write and
	// reconciles the response. On rejection the optimistic entry is rolled
	// back and the rejected content is returned for the composer.
	Send(ctx context.Context, content string) (string, error)
	CloseConversation(ctx context.Context)
	// DeleteConversation removes the active conversation server-side and
	// clears the local list. No push event exists for deletion.
	DeleteConversation(ctx context.Context) error
	Messages() []domain.Message
	Active() (directory.Channel, bool)
}

type chatService struct {
	api     MessageAPI
	subs    *subscription.Manager
	engine  *reconcile.Engine
	session *Session
	log     logger.Logger
	notify  func()

	mu      sync.Mutex
	channel directory.Channel
	open    bool
}

func NewChatService(msgAPI MessageAPI, subs *subscription.Manager, engine *reconcile.Engine, session *Session, notify func(), log logger.Logger) ChatService {
	if notify == nil {
		notify = func() {}
	}
	return &chatService{
		api:     msgAPI,
		subs:    subs,
		engine:  engine,
		session: session,
		log:     log,
		notify:  notify,
	}
}

func (s *chatService) OpenConversation(ctx context.Context, sel domain.Selection) error {
	ch, err := directory.Resolve(sel)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.channel = ch
	s.open = true
	s.mu.Unlock()

	s.engine.SetActive(ch.ConversationID)
	s.subs.Activate(ctx, ch.RoomID, map[string]subscription.Handler{
		"newMessage": s.onNewMessage,
	})

	// The snapshot is tagged with the conversation it was fetched for; the
	// engine refuses it if the user has switched away by the time it lands.
	go func() {
		messages, err := s.api.GetMessages(ctx, ch.Kind, ch.RoomID)
		if err != nil {
			s.log.Error("snapshot fetch failed", "conversation", ch.ConversationID, "error", err)
			return
		}
		if err := s.engine.Seed(ch.ConversationID, messages); err != nil {
			s.log.Debug("discarding stale snapshot", "conversation", ch.ConversationID)
			return
		}
		s.notify()
	}()
	return nil
}

func (s *chatService) Send(ctx context.Context, content string) (string, error) {
	s.mu.Lock()
	ch, open := s.channel, s.open
	s.mu.Unlock()
	if !open {
		return content, errors.ErrNoActiveConversation
	}

	tempID, err := s.engine.AppendOptimistic(domain.Message{
		ConversationID: ch.ConversationID,
		SenderID:       s.session.UserID(),
		SenderName:     s.session.DisplayName(),
		Content:        content,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		return content, err
	}
	s.notify()

	confirmed, err := s.api.SendMessage(ctx, api.SendMessageRequest{
		ConversationType: string(ch.Kind),
		ConversationID:   ch.ConversationID,
		Content:          content,
	})
	if err != nil {
		s.engine.FailOptimistic(tempID)
		s.notify()
		return content, fmt.Errorf("%w: %v", errors.ErrWriteRejected, err)
	}

	confirmed.ConversationID = ch.ConversationID
	s.engine.ConfirmOptimistic(tempID, confirmed)
	s.notify()
	return "", nil
}

func (s *chatService) CloseConversation(ctx context.Context) {
	s.mu.Lock()
	ch, open := s.channel, s.open
	s.open = false
	s.mu.Unlock()
	if !open {
		return
	}

	s.subs.Deactivate(ctx, ch.RoomID)
	s.engine.SetActive("")
}

func (s *chatService) DeleteConversation(ctx context.Context) error {
	s.mu.Lock()
	ch, open := s.channel, s.open
	s.mu.Unlock()
	if !open {
		return errors.ErrNoActiveConversation
	}

	if err := s.api.DeleteConversation(ctx, ch.Kind, ch.RoomID); err != nil {
		return err
	}
	if err := s.engine.Seed(ch.ConversationID, nil); err != nil {
		s.log.Debug("conversation already inactive on delete", "conversation", ch.ConversationID)
	}
	s.notify()
	return nil
}

func (s *chatService) Messages() []domain.Message {
	return s.engine.Messages()
}

func (s *chatService) Active() (directory.Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel, s.open
}

func (s *chatService) onNewMessage(data json.RawMessage) {
	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warn("dropping malformed newMessage push", "error", err)
		return
	}
	if msg.ID == uuid.Nil {
		s.log.Warn("dropping newMessage push without id")
		return
	}
	s.engine.MergeIncoming(msg)
	s.notify()
}
