package domain

import (
	"time"

	"github.com/google/uuid"
)

type Announcement struct {
	ID         uuid.UUID   `json:"id"`
	Title      string      `json:"title"`
	Content    string      `json:"content"`
	Priority   string      `json:"priority"`
	AuthorID   uuid.UUID   `json:"author_id"`
	AuthorName string      `json:"author_name"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Comments   []Comment   `json:"comments"`
	Likes      []uuid.UUID `json:"likes"`
}

type Comment struct {
	ID             uuid.UUID `json:"id"`
	TempID         uuid.UUID `json:"-"`
	AnnouncementID uuid.UUID `json:"announcement_id"`
	UserID         uuid.UUID `json:"user_id"`
	UserName       string    `json:"user_name"`
	UserRole       string    `json:"user_role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Pending        bool      `json:"-"`
}

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// LikedBy reports whether userID is in the like set.
func (a Announcement) LikedBy(userID uuid.UUID) bool {
	for _, id := range a.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
