package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mentor_chat/internal/domain"
	"mentor_chat/internal/reconcile"
	"mentor_chat/internal/subscription"
	"mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

// AnnouncementsRoom is the single push room all announcement events travel
// on, independent of the per-conversation chat rooms.
const AnnouncementsRoom = "announcements"

// AnnouncementAPI is the slice of the REST collaborator the announcement
// service needs.
type AnnouncementAPI interface {
	GetAnnouncements(ctx context.Context) ([]domain.Announcement, error)
	CreateComment(ctx context.Context, announcementID uuid.UUID, content string) (domain.Comment, error)
	ToggleLike(ctx context.Context, announcementID uuid.UUID) ([]uuid.UUID, error)
}

type AnnouncementService interface {
	// Load joins the announcement room and seeds the collection from a
	// snapshot fetch.
	Load(ctx context.Context) error
	// Comment submits the user's comment optimistically; rejection rolls the
	// pending entry back and returns the content for the composer.
	Comment(ctx context.Context, announcementID uuid.UUID, content string) (string, error)
	// ToggleLike flips the user's like and applies the resulting full set.
	ToggleLike(ctx context.Context, announcementID uuid.UUID) error
	Announcements() []domain.Announcement
	Close(ctx context.Context)
}

type announcementService struct {
	api     AnnouncementAPI
	subs    *subscription.Manager
	merger  *reconcile.Announcements
	session *Session
	log     logger.Logger
	notify  func()
}

// NewAnnouncementService wires the announcement merger to its own
// subscription manager: announcement events flow regardless of which chat
// conversation is active, so the two must not share a manager.
func NewAnnouncementService(annAPI AnnouncementAPI, subs *subscription.Manager, merger *reconcile.Announcements, session *Session, notify func(), log logger.Logger) AnnouncementService {
	if notify == nil {
		notify = func() {}
	}
	return &announcementService{
		api:     annAPI,
		subs:    subs,
		merger:  merger,
		session: session,
		log:     log,
		notify:  notify,
	}
}

func (s *announcementService) Load(ctx context.Context) error {
	s.subs.Activate(ctx, AnnouncementsRoom, map[string]subscription.Handler{
		"newAnnouncement":         s.onNewAnnouncement,
		"newAnnouncementComment":  s.onNewComment,
		"announcementLikeUpdated": s.onLikeUpdated,
	})

	announcements, err := s.api.GetAnnouncements(ctx)
	if err != nil {
		return fmt.Errorf("failed to load announcements: %w", err)
	}
	s.merger.SeedAnnouncements(announcements)
	s.notify()
	return nil
}

func (s *announcementService) Comment(ctx context.Context, announcementID uuid.UUID, content string) (string, error) {
	tempID, err := s.merger.MergeCommentOptimistic(announcementID, domain.Comment{
		UserID:    s.session.UserID(),
		UserName:  s.session.DisplayName(),
		UserRole:  s.session.Role(),
		Content:   content,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return content, err
	}
	s.notify()

	confirmed, err := s.api.CreateComment(ctx, announcementID, content)
	if err != nil {
		s.merger.FailComment(announcementID, tempID)
		s.notify()
		return content, fmt.Errorf("%w: %v", errors.ErrWriteRejected, err)
	}

	s.merger.ConfirmComment(announcementID, tempID, confirmed)
	s.notify()
	return "", nil
}

func (s *announcementService) ToggleLike(ctx context.Context, announcementID uuid.UUID) error {
	likes, err := s.api.ToggleLike(ctx, announcementID)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrWriteRejected, err)
	}
	if err := s.merger.MergeLikes(announcementID, likes); err != nil {
		s.log.Debug("like update for unloaded announcement", "announcement", announcementID)
		return nil
	}
	s.notify()
	return nil
}

func (s *announcementService) Announcements() []domain.Announcement {
	return s.merger.Announcements()
}

func (s *announcementService) Close(ctx context.Context) {
	s.subs.Deactivate(ctx, AnnouncementsRoom)
}

func (s *announcementService) onNewAnnouncement(data json.RawMessage) {
	var ann domain.Announcement
	if err := json.Unmarshal(data, &ann); err != nil {
		s.log.Warn("dropping malformed newAnnouncement push", "error", err)
		return
	}
	s.merger.MergeCreate(ann)
	s.notify()
}

type commentEvent struct {
	AnnouncementID uuid.UUID      `json:"announcement_id"`
	Comment        domain.Comment `json:"comment"`
}

func (s *announcementService) onNewComment(data json.RawMessage) {
	var ev commentEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn("dropping malformed newAnnouncementComment push", "error", err)
		return
	}
	if err := s.merger.MergeComment(ev.AnnouncementID, ev.Comment); err != nil {
		// announcement not loaded yet; the next full refresh self-corrects
		s.log.Debug("comment for unknown announcement dropped", "announcement", ev.AnnouncementID)
		return
	}
	s.notify()
}

type likeEvent struct {
	AnnouncementID uuid.UUID   `json:"announcement_id"`
	Likes          []uuid.UUID `json:"likes"`
}

func (s *announcementService) onLikeUpdated(data json.RawMessage) {
	var ev likeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn("dropping malformed announcementLikeUpdated push", "error", err)
		return
	}
	if err := s.merger.MergeLikes(ev.AnnouncementID, ev.Likes); err != nil {
		s.log.Debug("likes for unknown announcement dropped", "announcement", ev.AnnouncementID)
		return
	}
	s.notify()
}
