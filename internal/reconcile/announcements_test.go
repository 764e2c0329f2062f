package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentor_chat/internal/domain"
	"mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

func announcement(title string) domain.Announcement {
	return domain.Announcement{
		ID:        uuid.New(),
		Title:     title,
		Content:   title + " body",
		Priority:  domain.PriorityNormal,
		AuthorID:  uuid.New(),
		CreatedAt: time.Now(),
	}
}

func comment(annID uuid.UUID, content string) domain.Comment {
	return domain.Comment{
		ID:             uuid.New(),
		AnnouncementID: annID,
		UserID:         uuid.New(),
		UserRole:       domain.RoleMentee,
		Content:        content,
		CreatedAt:      time.Now(),
	}
}

func TestSeedAnnouncementsDedupes(t *testing.T) {
	a := NewAnnouncements(logger.NewNop())
	ann := announcement("week 1")
	user := uuid.New()
	ann.Likes = []uuid.UUID{user, user}

	a.SeedAnnouncements([]domain.Announcement{ann, ann})

	got := a.Announcements()
	require.Len(t, got, 1)
	assert.Len(t, got[0].Likes, 1, "likes must be a set")
}

func TestMergeCreatePrependsNewestFirst(t *testing.T) {
	a := NewAnnouncements(logger.NewNop())
	first := announcement("older")
	a.SeedAnnouncements([]domain.Announcement{first})

	second := announcement("newer")
	a.MergeCreate(second)
	a.MergeCreate(second) // redelivery

	got := a.Announcements()
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
}

func TestMergeCommentIdempotent(t *testing.T) {
	a := NewAnnouncements(logger.NewNop())
	ann := announcement("week 1")
	a.SeedAnnouncements([]domain.Announcement{ann})

	c := comment(ann.ID, "nice")
	require.NoError(t, a.MergeComment(ann.ID, c))
	require.NoError(t, a.MergeComment(ann.ID, c))

	got := a.Announcements()
	require.Len(t, got[0].Comments, 1)
	assert.Equal(t, c.ID, got[0].Comments[0].ID)
}

func TestMergeCommentUnknownAnnouncement(t *testing.T) {
	a := NewAnnouncements(logger.NewNop())
	err := a.MergeComment(uuid.New(), comment(uuid.New(), "lost"))
	assert.ErrorIs(t, err, errors.ErrUnknownAnnouncement)
	assert.Empty(t, a.Announcements())
}

func TestMergeLikesFullReplace(t *testing.T) {
	a := NewAnnouncements(logger.NewNop())
	ann := announcement("week 1")
	a.SeedAnnouncements([]domain.Announcement{ann})
	u1 := uuid.New()

	require.NoError(t, a.MergeLikes(ann.ID, []uuid.UUID{u1, u1}))
	assert.Len(t, a.Announcements()[0].Likes, 1)

	require.NoError(t, a.MergeLikes(ann.ID, nil))
	assert.Empty(t, a.Announcements()[0].Likes)

	assert.ErrorIs(t, a.MergeLikes(uuid.New(), []uuid.UUID{u1}), errors.ErrUnknownAnnouncement)
}

func TestOptimisticCommentConfirm(t *testing.T) {
	a := NewAnnouncements(logger.NewNop())
	ann := announcement("week 1")
	a.SeedAnnouncements([]domain.Announcement{ann})

	tempID, err := a.MergeCommentOptimistic(ann.ID, domain.Comment{
		UserID:   uuid.New(),
		UserRole: domain.RoleMentee,
		Content:  "submitting",
	})
	require.NoError(t, err)

	got := a.Announcements()[0].Comments
	require.Len(t, got, 1)
	assert.True(t, got[0].Pending)

	server := comment(ann.ID, "submitting")
	a.ConfirmComment(ann.ID, tempID, server)

	got = a.Announcements()[0].Comments
	require.Len(t, got, 1)
	assert.False(t, got[0].Pending)
	assert.Equal(t, server.ID, got[0].ID)

	// the push for the same server id must not duplicate it
	require.NoError(t, a.MergeComment(ann.ID, server))
	assert.Len(t, a.Announcements()[0].Comments, 1)
}

func TestPushBeforeConfirmDropsPendingComment(t *testing.T) {
	a := NewAnnouncements(logger.NewNop())
	ann := announcement("week 1")
	a.SeedAnnouncements([]domain.Announcement{ann})

	tempID, err := a.MergeCommentOptimistic(ann.ID, domain.Comment{
		UserID:  uuid.New(),
		Content: "fast push",
	})
	require.NoError(t, err)

	server := comment(ann.ID, "fast push")
	require.NoError(t, a.MergeComment(ann.ID, server))
	a.ConfirmComment(ann.ID, tempID, server)

	got := a.Announcements()[0].Comments
	ids := make(map[uuid.UUID]int)
	for _, c := range got {
		ids[c.ID]++
	}
	assert.Equal(t, 1, ids[server.ID])
	for _, c := range got {
		assert.False(t, c.Pending)
	}
}

func TestFailCommentRollsBack(t *testing.T) {
	a := NewAnnouncements(logger.NewNop())
	ann := announcement("week 1")
	a.SeedAnnouncements([]domain.Announcement{ann})

	tempID, err := a.MergeCommentOptimistic(ann.ID, domain.Comment{
		UserID:  uuid.New(),
		Content: "rejected",
	})
	require.NoError(t, err)

	assert.True(t, a.FailComment(ann.ID, tempID))
	assert.Empty(t, a.Announcements()[0].Comments)
	assert.False(t, a.FailComment(ann.ID, tempID))
}

func TestMergeCommentOptimisticUnknownAnnouncement(t *testing.T) {
	a := NewAnnouncements(logger.NewNop())
	_, err := a.MergeCommentOptimistic(uuid.New(), domain.Comment{Content: "x"})
	assert.ErrorIs(t, err, errors.ErrUnknownAnnouncement)
}
