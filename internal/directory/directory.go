// Package directory maps a conversation selection onto the identifiers the
// rest of the client needs: the synthetic conversation id used as the list
// key, and the transport room that must be joined to receive its events.
package directory

import (
	"strings"

	"mentor_chat/internal/domain"
	"mentor_chat/pkg/errors"
)

type Channel struct {
	ConversationID string
	RoomID         string
	Kind           domain.ConversationKind
}

// Resolve derives the Channel for a selection. Pure, no I/O; the only failure
// mode is malformed input. Equivalent selections always resolve to
// value-equal channels, which is what downstream dedup relies on.
func Resolve(sel domain.Selection) (Channel, error) {
	switch sel.Kind {
	case domain.KindGroup:
		if strings.TrimSpace(sel.GroupID) == "" {
			return Channel{}, errors.ErrInvalidSelection
		}
		return Channel{
			ConversationID: sel.ConversationID(),
			RoomID:         sel.GroupID,
			Kind:           domain.KindGroup,
		}, nil
	case domain.KindIndividual:
		if strings.TrimSpace(sel.PeerID) == "" {
			return Channel{}, errors.ErrInvalidSelection
		}
		return Channel{
			ConversationID: sel.ConversationID(),
			RoomID:         sel.PeerID,
			Kind:           domain.KindIndividual,
		}, nil
	default:
		return Channel{}, errors.ErrInvalidSelection
	}
}

// ResolveConversationID is Resolve for callers that only hold the synthetic
// id, e.g. when reacting to a pushed event.
func ResolveConversationID(conversationID string) (Channel, error) {
	sel, ok := domain.ParseConversationID(conversationID)
	if !ok {
		return Channel{}, errors.ErrInvalidSelection
	}
	return Resolve(sel)
}
