package devserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mentor_chat/internal/config"
	"mentor_chat/internal/domain"
	"mentor_chat/internal/service"
	"mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

// errorHandler maps errors attached via c.Error onto HTTP responses.
// Sentinels go through the shared taxonomy; APIError carries its own code.
func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		if apiErr, ok := err.(*errors.APIError); ok {
			c.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
			return
		}
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dev server, any origin
	},
}

type Server struct {
	store *Store
	hub   *Hub
	cfg   *config.Config
	log   logger.Logger
}

func NewServer(store *Store, hub *Hub, cfg *config.Config, log logger.Logger) *Server {
	return &Server{
		store: store,
		hub:   hub,
		cfg:   cfg,
		log:   log,
	}
}

func (s *Server) Router() *gin.Engine {
	if s.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), errorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/auth/dev-token", s.issueDevToken)
	router.GET("/ws", s.handleSocket)

	v1 := router.Group("/api/v1")
	v1.Use(s.requireAuth())
	{
		v1.GET("/conversations/:type/:id/messages", s.getMessages)
		v1.DELETE("/conversations/:type/:id", s.deleteConversation)
		v1.POST("/messages", s.sendMessage)

		v1.GET("/announcements", s.getAnnouncements)
		v1.POST("/announcements", s.createAnnouncement)
		v1.POST("/announcements/:id/comments", s.createComment)
		v1.POST("/announcements/:id/likes", s.toggleLike)
	}

	return router
}

type devTokenRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	Role        string `json:"role" binding:"required"`
}

func (s *Server) issueDevToken(c *gin.Context) {
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewAPIError(err.Error(), http.StatusBadRequest))
		return
	}

	userID := uuid.New()
	claims := service.SessionClaims{
		UserID:      userID.String(),
		DisplayName: req.DisplayName,
		Role:        req.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.JWT.Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.cfg.JWT.TTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		s.log.Error("failed to sign dev token", "error", err)
		c.Error(errors.ErrInternalServer)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user_id": userID, "token": token})
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.userFromToken(bearerToken(c.Request))
		if err != nil {
			c.Error(errors.ErrInvalidToken)
			c.Abort()
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

func (s *Server) userFromToken(raw string) (domain.User, error) {
	var claims service.SessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.JWT.Secret), nil
	})
	if err != nil {
		return domain.User{}, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:          userID,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
	}, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return r.URL.Query().Get("token")
}

func currentUser(c *gin.Context) domain.User {
	user, _ := c.Get("user")
	return user.(domain.User)
}

func (s *Server) handleSocket(c *gin.Context) {
	if _, err := s.userFromToken(bearerToken(c.Request)); err != nil {
		c.Error(errors.ErrInvalidToken)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("failed to upgrade connection", "error", err)
		return
	}
	s.hub.Serve(conn)
}

func (s *Server) getMessages(c *gin.Context) {
	user := currentUser(c)

	switch domain.ConversationKind(c.Param("type")) {
	case domain.KindGroup:
		c.JSON(http.StatusOK, s.store.GroupMessages(c.Param("id")))
	case domain.KindIndividual:
		peer, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.Error(errors.NewAPIError("invalid peer ID", http.StatusBadRequest))
			return
		}
		c.JSON(http.StatusOK, s.store.PairMessages(user.ID, peer))
	default:
		c.Error(errors.ErrInvalidSelection)
	}
}

type sendMessageRequest struct {
	ConversationType string `json:"conversation_type" binding:"required"`
	ConversationID   string `json:"conversation_id" binding:"required"`
	Content          string `json:"content" binding:"required"`
}

func (s *Server) sendMessage(c *gin.Context) {
	user := currentUser(c)

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewAPIError(err.Error(), http.StatusBadRequest))
		return
	}

	sel, ok := domain.ParseConversationID(req.ConversationID)
	if !ok || string(sel.Kind) != req.ConversationType {
		c.Error(errors.ErrInvalidSelection)
		return
	}

	switch sel.Kind {
	case domain.KindGroup:
		msg := s.store.AppendGroupMessage(sel.GroupID, user, req.Content)
		s.hub.Broadcast(sel.GroupID, "newMessage", msg)
		c.JSON(http.StatusCreated, msg)
	case domain.KindIndividual:
		peer, err := uuid.Parse(sel.PeerID)
		if err != nil {
			c.Error(errors.NewAPIError("invalid peer ID", http.StatusBadRequest))
			return
		}
		msg := s.store.AppendPairMessage(user, peer, req.Content)

		// Room names are peer ids from each viewer's perspective: the peer's
		// clients listen on the sender's id and vice versa.
		toPeer := msg
		toPeer.ConversationID = domain.Selection{Kind: domain.KindIndividual, PeerID: user.ID.String()}.ConversationID()
		s.hub.Broadcast(user.ID.String(), "newMessage", toPeer)

		toSender := msg
		toSender.ConversationID = domain.Selection{Kind: domain.KindIndividual, PeerID: peer.String()}.ConversationID()
		s.hub.Broadcast(peer.String(), "newMessage", toSender)

		c.JSON(http.StatusCreated, toSender)
	}
}

func (s *Server) deleteConversation(c *gin.Context) {
	user := currentUser(c)

	switch domain.ConversationKind(c.Param("type")) {
	case domain.KindGroup:
		s.store.DeleteGroupConversation(c.Param("id"))
	case domain.KindIndividual:
		peer, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.Error(errors.NewAPIError("invalid peer ID", http.StatusBadRequest))
			return
		}
		s.store.DeletePairConversation(user.ID, peer)
	default:
		c.Error(errors.ErrInvalidSelection)
		return
	}
	// no push event for deletion; clients clear their own state
	c.JSON(http.StatusOK, gin.H{"message": "conversation deleted"})
}

func (s *Server) getAnnouncements(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Announcements())
}

type createAnnouncementRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	Priority string `json:"priority"`
}

func (s *Server) createAnnouncement(c *gin.Context) {
	user := currentUser(c)
	if user.Role != domain.RoleMentor && user.Role != domain.RoleAdmin {
		c.Error(errors.NewAPIError("only mentors can post announcements", http.StatusForbidden))
		return
	}

	var req createAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewAPIError(err.Error(), http.StatusBadRequest))
		return
	}
	if req.Priority == "" {
		req.Priority = domain.PriorityNormal
	}

	ann := s.store.CreateAnnouncement(user, req.Title, req.Content, req.Priority)
	s.hub.Broadcast(service.AnnouncementsRoom, "newAnnouncement", ann)
	c.JSON(http.StatusCreated, ann)
}

type createCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (s *Server) createComment(c *gin.Context) {
	user := currentUser(c)

	announcementID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(errors.NewAPIError("invalid announcement ID", http.StatusBadRequest))
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewAPIError(err.Error(), http.StatusBadRequest))
		return
	}

	comment, err := s.store.AddComment(announcementID, user, req.Content)
	if err != nil {
		c.Error(err)
		return
	}

	s.hub.Broadcast(service.AnnouncementsRoom, "newAnnouncementComment", gin.H{
		"announcement_id": announcementID,
		"comment":         comment,
	})
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) toggleLike(c *gin.Context) {
	user := currentUser(c)

	announcementID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(errors.NewAPIError("invalid announcement ID", http.StatusBadRequest))
		return
	}

	likes, err := s.store.ToggleLike(announcementID, user.ID)
	if err != nil {
		c.Error(err)
		return
	}

	s.hub.Broadcast(service.AnnouncementsRoom, "announcementLikeUpdated", gin.H{
		"announcement_id": announcementID,
		"likes":           likes,
	})
	c.JSON(http.StatusOK, gin.H{"likes": likes})
}
