// Package api is the REST client for the chat backend. Response shapes are
// identical to the push event payloads, so both feed the same merge code.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"mentor_chat/internal/domain"
	"mentor_chat/pkg/errors"
)

type Client struct {
	baseURL    string
	token      func() string
	httpClient *http.Client
}

// NewClient builds a client for baseURL. token is called per request so a
// refreshed session takes effect without rebuilding the client.
func NewClient(baseURL string, token func() string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type SendMessageRequest struct {
	ConversationType string `json:"conversation_type"`
	ConversationID   string `json:"conversation_id"`
	Content          string `json:"content"`
}

type createCommentRequest struct {
	Content string `json:"content"`
}

type likesResponse struct {
	Likes []uuid.UUID `json:"likes"`
}

// GetMessages fetches the confirmed snapshot for a conversation,
// oldest-first.
func (c *Client) GetMessages(ctx context.Context, conversationType domain.ConversationKind, roomID string) ([]domain.Message, error) {
	var messages []domain.Message
	path := fmt.Sprintf("/api/v1/conversations/%s/%s/messages", conversationType, roomID)
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage posts a message and returns the server-confirmed copy.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (domain.Message, error) {
	var message domain.Message
	if err := c.do(ctx, http.MethodPost, "/api/v1/messages", req, http.StatusCreated, &message); err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// DeleteConversation removes a conversation server-side. No push event is
// sent for this; the caller clears local state itself.
func (c *Client) DeleteConversation(ctx context.Context, conversationType domain.ConversationKind, roomID string) error {
	path := fmt.Sprintf("/api/v1/conversations/%s/%s", conversationType, roomID)
	return c.do(ctx, http.MethodDelete, path, nil, http.StatusOK, nil)
}

// GetAnnouncements fetches all announcements with nested comments and likes.
func (c *Client) GetAnnouncements(ctx context.Context) ([]domain.Announcement, error) {
	var announcements []domain.Announcement
	if err := c.do(ctx, http.MethodGet, "/api/v1/announcements", nil, http.StatusOK, &announcements); err != nil {
		return nil, err
	}
	return announcements, nil
}

// CreateComment posts a comment and returns the confirmed copy.
func (c *Client) CreateComment(ctx context.Context, announcementID uuid.UUID, content string) (domain.Comment, error) {
	var comment domain.Comment
	path := fmt.Sprintf("/api/v1/announcements/%s/comments", announcementID)
	if err := c.do(ctx, http.MethodPost, path, createCommentRequest{Content: content}, http.StatusCreated, &comment); err != nil {
		return domain.Comment{}, err
	}
	return comment, nil
}

// ToggleLike flips the caller's like and returns the full resulting set.
func (c *Client) ToggleLike(ctx context.Context, announcementID uuid.UUID) ([]uuid.UUID, error) {
	var resp likesResponse
	path := fmt.Sprintf("/api/v1/announcements/%s/likes", announcementID)
	if err := c.do(ctx, http.MethodPost, path, nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Likes, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, wantStatus int, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if t := c.token(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(resp.Body)
		apiErr := &errors.APIError{Code: resp.StatusCode}
		var decoded errors.APIError
		if json.Unmarshal(raw, &decoded) == nil && decoded.Message != "" {
			apiErr.Message = decoded.Message
		} else {
			apiErr.Message = fmt.Sprintf("chat backend returned status %d", resp.StatusCode)
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
