package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentor_chat/internal/domain"
	pkgerrors "mentor_chat/pkg/errors"
)

func TestGetMessages(t *testing.T) {
	want := []domain.Message{
		{ID: uuid.New(), ConversationID: "group_cohort-7", Content: "hi", CreatedAt: time.Now().UTC()},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/conversations/group/cohort-7/messages", r.URL.Path)
		assert.Equal(t, "Bearer dev-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, func() string { return "dev-token" })
	got, err := c.GetMessages(context.Background(), domain.KindGroup, "cohort-7")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want[0].ID, got[0].ID)
	assert.Equal(t, "hi", got[0].Content)
}

func TestSendMessage(t *testing.T) {
	serverID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/messages", r.URL.Path)

		var req SendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "individual", req.ConversationType)
		assert.Equal(t, "individual_u42", req.ConversationID)
		assert.Equal(t, "hello", req.Content)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.Message{
			ID:             serverID,
			ConversationID: req.ConversationID,
			Content:        req.Content,
			CreatedAt:      time.Now().UTC(),
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	msg, err := c.SendMessage(context.Background(), SendMessageRequest{
		ConversationType: "individual",
		ConversationID:   "individual_u42",
		Content:          "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, serverID, msg.ID)
}

func TestSendMessageRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "content too long"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.SendMessage(context.Background(), SendMessageRequest{Content: "x"})
	require.Error(t, err)

	apiErr, ok := err.(*pkgerrors.APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Code)
	assert.Equal(t, "content too long", apiErr.Message)
}

func TestDeleteConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/conversations/individual/u42", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"message": "deleted"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	assert.NoError(t, c.DeleteConversation(context.Background(), domain.KindIndividual, "u42"))
}

func TestGetAnnouncements(t *testing.T) {
	annID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/announcements", r.URL.Path)
		json.NewEncoder(w).Encode([]domain.Announcement{
			{ID: annID, Title: "week 1", Comments: []domain.Comment{}, Likes: []uuid.UUID{}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	got, err := c.GetAnnouncements(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, annID, got[0].ID)
}

func TestCreateCommentAndToggleLike(t *testing.T) {
	annID := uuid.New()
	commentID := uuid.New()
	liker := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/announcements/" + annID.String() + "/comments":
			var req struct {
				Content string `json:"content"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(domain.Comment{
				ID:             commentID,
				AnnouncementID: annID,
				Content:        req.Content,
			})
		case "/api/v1/announcements/" + annID.String() + "/likes":
			json.NewEncoder(w).Encode(map[string][]uuid.UUID{"likes": {liker}})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)

	comment, err := c.CreateComment(context.Background(), annID, "great")
	require.NoError(t, err)
	assert.Equal(t, commentID, comment.ID)
	assert.Equal(t, "great", comment.Content)

	likes, err := c.ToggleLike(context.Background(), annID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{liker}, likes)
}
