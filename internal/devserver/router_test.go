package devserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentor_chat/internal/config"
	"mentor_chat/internal/domain"
	"mentor_chat/internal/service"
	"mentor_chat/pkg/logger"
)

func testRouter(t *testing.T) (*gin.Engine, *Store, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			Secret: "dev-secret",
			TTL:    time.Hour,
			Issuer: "mentor-chat-dev",
		},
	}
	store := NewStore()
	hub := NewHub(logger.NewNop())
	srv := NewServer(store, hub, cfg, logger.NewNop())
	return srv.Router(), store, cfg
}

func signToken(t *testing.T, cfg *config.Config, userID uuid.UUID, name, role string) string {
	t.Helper()
	claims := service.SessionClaims{
		UserID:      userID.String(),
		DisplayName: name,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.JWT.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.JWT.TTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWT.Secret))
	require.NoError(t, err)
	return token
}

func doJSON(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMissingTokenMapsToUnauthorized(t *testing.T) {
	router, _, _ := testRouter(t)

	rec := doJSON(router, http.MethodGet, "/api/v1/announcements", "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error": "invalid token"}`, rec.Body.String())
}

func TestCommentOnUnknownAnnouncementMapsToNotFound(t *testing.T) {
	router, _, cfg := testRouter(t)
	token := signToken(t, cfg, uuid.New(), "Dana", domain.RoleMentee)

	rec := doJSON(router, http.MethodPost,
		"/api/v1/announcements/"+uuid.NewString()+"/comments", token,
		`{"content": "first!"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "not found"}`, rec.Body.String())
}

func TestLikeOnUnknownAnnouncementMapsToNotFound(t *testing.T) {
	router, _, cfg := testRouter(t)
	token := signToken(t, cfg, uuid.New(), "Dana", domain.RoleMentee)

	rec := doJSON(router, http.MethodPost,
		"/api/v1/announcements/"+uuid.NewString()+"/likes", token, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownConversationTypeMapsToBadRequest(t *testing.T) {
	router, _, cfg := testRouter(t)
	token := signToken(t, cfg, uuid.New(), "Dana", domain.RoleMentee)

	rec := doJSON(router, http.MethodGet, "/api/v1/conversations/channel/x/messages", token, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "invalid conversation selection"}`, rec.Body.String())
}

func TestMenteeCannotPostAnnouncements(t *testing.T) {
	router, _, cfg := testRouter(t)
	token := signToken(t, cfg, uuid.New(), "Dana", domain.RoleMentee)

	rec := doJSON(router, http.MethodPost, "/api/v1/announcements", token,
		`{"title": "t", "content": "c"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error": "only mentors can post announcements"}`, rec.Body.String())
}

func TestCommentOnExistingAnnouncementSucceeds(t *testing.T) {
	router, store, cfg := testRouter(t)
	mentor := domain.User{ID: uuid.New(), DisplayName: "Rae", Role: domain.RoleMentor}
	ann := store.CreateAnnouncement(mentor, "kickoff", "welcome", domain.PriorityNormal)
	token := signToken(t, cfg, uuid.New(), "Dana", domain.RoleMentee)

	rec := doJSON(router, http.MethodPost,
		"/api/v1/announcements/"+ann.ID.String()+"/comments", token,
		`{"content": "thanks!"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
}
