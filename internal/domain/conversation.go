package domain

import (
	"fmt"
	"strings"
)

// ConversationKind discriminates the two conversation shapes: a mentoring
// group room and a one-to-one chat with a single peer.
type ConversationKind string

const (
	KindGroup      ConversationKind = "group"
	KindIndividual ConversationKind = "individual"
)

// Selection is what the UI hands over when the user opens a chat. Exactly one
// of GroupID/PeerID is meaningful, selected by Kind.
type Selection struct {
	Kind    ConversationKind
	GroupID string
	PeerID  string
}

// ConversationID builds the synthetic identifier used as the UI list key.
// The mapping must stay invertible: ParseConversationID(s.ConversationID())
// round-trips for every valid selection.
func (s Selection) ConversationID() string {
	switch s.Kind {
	case KindGroup:
		return fmt.Sprintf("group_%s", s.GroupID)
	case KindIndividual:
		return fmt.Sprintf("individual_%s", s.PeerID)
	default:
		return ""
	}
}

// ParseConversationID inverts the synthetic identifier back into a Selection.
func ParseConversationID(id string) (Selection, bool) {
	if raw, ok := strings.CutPrefix(id, "group_"); ok && raw != "" {
		return Selection{Kind: KindGroup, GroupID: raw}, true
	}
	if raw, ok := strings.CutPrefix(id, "individual_"); ok && raw != "" {
		return Selection{Kind: KindIndividual, PeerID: raw}, true
	}
	return Selection{}, false
}
