package reconcile

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"mentor_chat/internal/domain"
	"mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

// Announcements owns the announcement collection and, per announcement, its
// comment and like sub-collections. Same three-source merge discipline as the
// message engine, but dedup is purely id-based: comments always carry a
// server id by the time they are pushed.
type Announcements struct {
	log logger.Logger

	mu   sync.Mutex
	list []domain.Announcement
}

func NewAnnouncements(log logger.Logger) *Announcements {
	return &Announcements{log: log}
}

// SeedAnnouncements replaces the collection with a snapshot. Like sets are
// deduplicated on the way in so downstream code can treat them as sets.
func (a *Announcements) SeedAnnouncements(list []domain.Announcement) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.list = make([]domain.Announcement, 0, len(list))
	seen := make(map[uuid.UUID]struct{}, len(list))
	for _, ann := range list {
		if _, dup := seen[ann.ID]; dup {
			continue
		}
		seen[ann.ID] = struct{}{}
		ann.Likes = dedupLikes(ann.Likes)
		a.list = append(a.list, ann)
	}
}

// MergeCreate prepends a pushed announcement (the list is newest-first).
// Redelivery of an id already present is a no-op.
func (a *Announcements) MergeCreate(ann domain.Announcement) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.list {
		if a.list[i].ID == ann.ID {
			return
		}
	}
	ann.Likes = dedupLikes(ann.Likes)
	a.list = append([]domain.Announcement{ann}, a.list...)
}

// MergeComment appends a pushed comment to its announcement. An unknown
// announcement id is reported but intentionally not fatal: the list
// self-corrects on the next full refresh.
func (a *Announcements) MergeComment(announcementID uuid.UUID, c domain.Comment) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ann := a.findLocked(announcementID)
	if ann == nil {
		return errors.ErrUnknownAnnouncement
	}
	for i := range ann.Comments {
		if ann.Comments[i].ID == c.ID {
			return nil
		}
	}
	c.Pending = false
	c.TempID = uuid.Nil
	ann.Comments = append(ann.Comments, c)
	return nil
}

// MergeLikes replaces the like set wholesale; the transport pushes the full
// resulting set, which sidesteps ordering races on concurrent like/unlike.
func (a *Announcements) MergeLikes(announcementID uuid.UUID, likes []uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ann := a.findLocked(announcementID)
	if ann == nil {
		return errors.ErrUnknownAnnouncement
	}
	ann.Likes = dedupLikes(likes)
	return nil
}

// MergeCommentOptimistic appends the submitting user's own comment before
// the server confirms it, returning the temp id to confirm or roll back with.
func (a *Announcements) MergeCommentOptimistic(announcementID uuid.UUID, c domain.Comment) (uuid.UUID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ann := a.findLocked(announcementID)
	if ann == nil {
		return uuid.Nil, errors.ErrUnknownAnnouncement
	}
	c.TempID = uuid.New()
	c.ID = uuid.Nil
	c.AnnouncementID = announcementID
	c.Pending = true
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	ann.Comments = append(ann.Comments, c)
	return c.TempID, nil
}

// ConfirmComment swaps the pending comment for the server's copy in place.
// Reentrant with a later MergeComment of the same server id.
func (a *Announcements) ConfirmComment(announcementID, tempID uuid.UUID, server domain.Comment) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ann := a.findLocked(announcementID)
	if ann == nil {
		return
	}
	for i := range ann.Comments {
		if ann.Comments[i].ID == server.ID && server.ID != uuid.Nil {
			// push already delivered the confirmed copy
			a.dropCommentLocked(ann, tempID)
			return
		}
	}
	for i := range ann.Comments {
		if ann.Comments[i].Pending && ann.Comments[i].TempID == tempID {
			server.Pending = false
			server.TempID = uuid.Nil
			ann.Comments[i] = server
			return
		}
	}
}

// FailComment removes a pending comment after a rejected write.
func (a *Announcements) FailComment(announcementID, tempID uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	ann := a.findLocked(announcementID)
	if ann == nil {
		return false
	}
	return a.dropCommentLocked(ann, tempID)
}

// Announcements returns a deep-enough copy of the collection: the slice
// headers are fresh so callers can range freely while merges continue.
func (a *Announcements) Announcements() []domain.Announcement {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.Announcement, len(a.list))
	for i, ann := range a.list {
		ann.Comments = append([]domain.Comment(nil), ann.Comments...)
		ann.Likes = append([]uuid.UUID(nil), ann.Likes...)
		out[i] = ann
	}
	return out
}

func (a *Announcements) findLocked(id uuid.UUID) *domain.Announcement {
	for i := range a.list {
		if a.list[i].ID == id {
			return &a.list[i]
		}
	}
	return nil
}

func (a *Announcements) dropCommentLocked(ann *domain.Announcement, tempID uuid.UUID) bool {
	for i := range ann.Comments {
		if ann.Comments[i].Pending && ann.Comments[i].TempID == tempID {
			ann.Comments = append(ann.Comments[:i], ann.Comments[i+1:]...)
			return true
		}
	}
	return false
}

func dedupLikes(likes []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(likes))
	seen := make(map[uuid.UUID]struct{}, len(likes))
	for _, id := range likes {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
