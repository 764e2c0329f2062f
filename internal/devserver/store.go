// Package devserver is an in-memory reference backend for local development:
// it implements the REST and push contracts the client consumes, without
// durable storage or real authentication.
package devserver

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mentor_chat/internal/domain"
	"mentor_chat/pkg/errors"
)

type Store struct {
	mu            sync.Mutex
	groups        map[string][]domain.Message
	pairs         map[string][]domain.Message
	announcements []domain.Announcement
}

func NewStore() *Store {
	return &Store{
		groups: make(map[string][]domain.Message),
		pairs:  make(map[string][]domain.Message),
	}
}

// pairKey canonicalizes an individual conversation so both participants read
// and write the same history.
func pairKey(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	sort.Strings(ids)
	return fmt.Sprintf("%s|%s", ids[0], ids[1])
}

func (s *Store) GroupMessages(groupID string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.groups[groupID]...)
}

// PairMessages returns the history between caller and peer, with each
// message's conversation id rewritten to the caller's perspective.
func (s *Store) PairMessages(caller, peer uuid.UUID) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.pairs[pairKey(caller, peer)]
	out := make([]domain.Message, len(stored))
	convID := domain.Selection{Kind: domain.KindIndividual, PeerID: peer.String()}.ConversationID()
	for i, m := range stored {
		m.ConversationID = convID
		out[i] = m
	}
	return out
}

func (s *Store) AppendGroupMessage(groupID string, sender domain.User, content string) domain.Message {
	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: domain.Selection{Kind: domain.KindGroup, GroupID: groupID}.ConversationID(),
		SenderID:       sender.ID,
		SenderName:     sender.DisplayName,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
		Origin:         domain.OriginConfirmed,
	}
	s.mu.Lock()
	s.groups[groupID] = append(s.groups[groupID], msg)
	s.mu.Unlock()
	return msg
}

func (s *Store) AppendPairMessage(sender domain.User, peer uuid.UUID, content string) domain.Message {
	msg := domain.Message{
		ID:         uuid.New(),
		SenderID:   sender.ID,
		SenderName: sender.DisplayName,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
		Origin:     domain.OriginConfirmed,
	}
	s.mu.Lock()
	key := pairKey(sender.ID, peer)
	s.pairs[key] = append(s.pairs[key], msg)
	s.mu.Unlock()
	return msg
}

func (s *Store) DeleteGroupConversation(groupID string) {
	s.mu.Lock()
	delete(s.groups, groupID)
	s.mu.Unlock()
}

func (s *Store) DeletePairConversation(caller, peer uuid.UUID) {
	s.mu.Lock()
	delete(s.pairs, pairKey(caller, peer))
	s.mu.Unlock()
}

func (s *Store) Announcements() []domain.Announcement {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Announcement, len(s.announcements))
	for i, a := range s.announcements {
		a.Comments = append([]domain.Comment(nil), a.Comments...)
		a.Likes = append([]uuid.UUID(nil), a.Likes...)
		out[i] = a
	}
	return out
}

func (s *Store) CreateAnnouncement(author domain.User, title, content, priority string) domain.Announcement {
	now := time.Now().UTC()
	ann := domain.Announcement{
		ID:         uuid.New(),
		Title:      title,
		Content:    content,
		Priority:   priority,
		AuthorID:   author.ID,
		AuthorName: author.DisplayName,
		CreatedAt:  now,
		UpdatedAt:  now,
		Comments:   []domain.Comment{},
		Likes:      []uuid.UUID{},
	}
	s.mu.Lock()
	// newest first, matching the client's ordering
	s.announcements = append([]domain.Announcement{ann}, s.announcements...)
	s.mu.Unlock()
	return ann
}

func (s *Store) AddComment(announcementID uuid.UUID, author domain.User, content string) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.announcements {
		if s.announcements[i].ID != announcementID {
			continue
		}
		c := domain.Comment{
			ID:             uuid.New(),
			AnnouncementID: announcementID,
			UserID:         author.ID,
			UserName:       author.DisplayName,
			UserRole:       author.Role,
			Content:        content,
			CreatedAt:      time.Now().UTC(),
		}
		s.announcements[i].Comments = append(s.announcements[i].Comments, c)
		s.announcements[i].UpdatedAt = c.CreatedAt
		return c, nil
	}
	return domain.Comment{}, errors.ErrNotFound
}

// ToggleLike flips userID's like and returns the full resulting set.
func (s *Store) ToggleLike(announcementID, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.announcements {
		if s.announcements[i].ID != announcementID {
			continue
		}
		likes := s.announcements[i].Likes
		for j, id := range likes {
			if id == userID {
				likes = append(likes[:j], likes[j+1:]...)
				s.announcements[i].Likes = likes
				return append([]uuid.UUID(nil), likes...), nil
			}
		}
		likes = append(likes, userID)
		s.announcements[i].Likes = likes
		return append([]uuid.UUID(nil), likes...), nil
	}
	return nil, errors.ErrNotFound
}
