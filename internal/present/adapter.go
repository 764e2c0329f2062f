// Package present projects reconciled state into view-ready structures.
package present

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"mentor_chat/internal/domain"
)

type MessageView struct {
	ID      string
	Sender  string
	Content string
	When    string
	Mine    bool
	Pending bool
}

type CommentView struct {
	Author  string
	Role    string
	Content string
	When    string
	Pending bool
}

type AnnouncementView struct {
	ID        string
	Title     string
	Content   string
	Priority  string
	Author    string
	When      string
	LikeCount int
	Liked     bool
	Comments  []CommentView
}

// ProjectMessages renders the ordered message list for display. Order is
// preserved exactly; this layer never reorders or filters.
func ProjectMessages(msgs []domain.Message, me uuid.UUID, now time.Time) []MessageView {
	out := make([]MessageView, len(msgs))
	for i, m := range msgs {
		sender := m.SenderName
		if sender == "" {
			sender = shortID(m.SenderID)
		}
		out[i] = MessageView{
			ID:      m.ID.String(),
			Sender:  sender,
			Content: m.Content,
			When:    RelativeTime(m.CreatedAt, now),
			Mine:    m.SenderID == me,
			Pending: m.Origin == domain.OriginOptimistic,
		}
	}
	return out
}

func ProjectAnnouncements(list []domain.Announcement, me uuid.UUID, now time.Time) []AnnouncementView {
	out := make([]AnnouncementView, len(list))
	for i, a := range list {
		comments := make([]CommentView, len(a.Comments))
		for j, c := range a.Comments {
			author := c.UserName
			if author == "" {
				author = shortID(c.UserID)
			}
			comments[j] = CommentView{
				Author:  author,
				Role:    c.UserRole,
				Content: c.Content,
				When:    RelativeTime(c.CreatedAt, now),
				Pending: c.Pending,
			}
		}
		out[i] = AnnouncementView{
			ID:        a.ID.String(),
			Title:     a.Title,
			Content:   a.Content,
			Priority:  a.Priority,
			Author:    a.AuthorName,
			When:      RelativeTime(a.CreatedAt, now),
			LikeCount: len(a.Likes),
			Liked:     a.LikedBy(me),
			Comments:  comments,
		}
	}
	return out
}

// RelativeTime formats a timestamp the way chat UIs do: recent times as an
// age, older ones as a date.
func RelativeTime(at, now time.Time) string {
	if at.IsZero() {
		return ""
	}
	d := now.Sub(at)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return at.Format("Jan 2, 2006")
	}
}

func shortID(id uuid.UUID) string {
	s := id.String()
	if len(s) < 8 {
		return s
	}
	return s[:8]
}
