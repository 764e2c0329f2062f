package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageOrigin tags where an in-memory message came from. Optimistic entries
// are local echoes shown before the server confirms the write.
type MessageOrigin string

const (
	OriginConfirmed  MessageOrigin = "confirmed"
	OriginOptimistic MessageOrigin = "optimistic"
)

type Message struct {
	ID             uuid.UUID     `json:"id"`
	TempID         uuid.UUID     `json:"-"`
	ConversationID string        `json:"conversation_id"`
	SenderID       uuid.UUID     `json:"sender_id"`
	SenderName     string        `json:"sender_name"`
	Content        string        `json:"content"`
	CreatedAt      time.Time     `json:"created_at"`
	Origin         MessageOrigin `json:"-"`
}

// Confirmed reports whether the message carries a server-assigned id.
func (m Message) Confirmed() bool {
	return m.Origin == OriginConfirmed && m.ID != uuid.Nil
}
