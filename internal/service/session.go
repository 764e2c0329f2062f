package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mentor_chat/pkg/errors"
)

// SessionClaims is the token shape issued by the auth collaborator.
type SessionClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// Session holds the bearer token and the identity parsed out of it. The
// client never verifies the signature; that is the server's job. Parsing is
// only used to know who "me" is and when the token runs out.
type Session struct {
	token  string
	claims SessionClaims
	userID uuid.UUID
}

func NewSession(token string) (*Session, error) {
	var claims SessionClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, errors.ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, errors.ErrInvalidToken
	}
	return &Session{
		token:  token,
		claims: claims,
		userID: userID,
	}, nil
}

func (s *Session) Token() string { return s.token }

func (s *Session) UserID() uuid.UUID { return s.userID }

func (s *Session) DisplayName() string { return s.claims.DisplayName }

func (s *Session) Role() string { return s.claims.Role }

func (s *Session) ExpiresAt() time.Time {
	if s.claims.ExpiresAt == nil {
		return time.Time{}
	}
	return s.claims.ExpiresAt.Time
}

func (s *Session) Expired(now time.Time) bool {
	exp := s.ExpiresAt()
	return !exp.IsZero() && now.After(exp)
}
