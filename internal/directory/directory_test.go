package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mentor_chat/internal/domain"
	"mentor_chat/pkg/errors"
)

func TestResolveGroup(t *testing.T) {
	ch, err := Resolve(domain.Selection{Kind: domain.KindGroup, GroupID: "cohort-7"})
	assert.NoError(t, err)
	assert.Equal(t, "group_cohort-7", ch.ConversationID)
	assert.Equal(t, "cohort-7", ch.RoomID)
	assert.Equal(t, domain.KindGroup, ch.Kind)
}

func TestResolveIndividual(t *testing.T) {
	ch, err := Resolve(domain.Selection{Kind: domain.KindIndividual, PeerID: "u42"})
	assert.NoError(t, err)
	assert.Equal(t, "individual_u42", ch.ConversationID)
	assert.Equal(t, "u42", ch.RoomID)
}

func TestResolveMalformed(t *testing.T) {
	cases := []domain.Selection{
		{},
		{Kind: domain.KindGroup},
		{Kind: domain.KindGroup, GroupID: "   "},
		{Kind: domain.KindIndividual},
		{Kind: "broadcast", GroupID: "x"},
	}
	for _, sel := range cases {
		_, err := Resolve(sel)
		assert.ErrorIs(t, err, errors.ErrInvalidSelection)
	}
}

func TestResolveIsStable(t *testing.T) {
	sel := domain.Selection{Kind: domain.KindIndividual, PeerID: "u42"}
	a, err := Resolve(sel)
	assert.NoError(t, err)
	b, err := Resolve(sel)
	assert.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestConversationIDRoundTrip(t *testing.T) {
	for _, sel := range []domain.Selection{
		{Kind: domain.KindGroup, GroupID: "cohort-7"},
		{Kind: domain.KindIndividual, PeerID: "u42"},
		// a peer id that itself contains an underscore must survive
		{Kind: domain.KindIndividual, PeerID: "user_99"},
	} {
		parsed, ok := domain.ParseConversationID(sel.ConversationID())
		assert.True(t, ok)
		assert.Equal(t, sel, parsed)
	}
}

func TestResolveConversationID(t *testing.T) {
	ch, err := ResolveConversationID("group_cohort-7")
	assert.NoError(t, err)
	assert.Equal(t, "cohort-7", ch.RoomID)

	_, err = ResolveConversationID("cohort-7")
	assert.ErrorIs(t, err, errors.ErrInvalidSelection)
}
