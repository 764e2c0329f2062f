package errors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrBadRequest           = errors.New("bad request")
	ErrInternalServer       = errors.New("internal server error")
	ErrInvalidSelection     = errors.New("invalid conversation selection")
	ErrTransportUnavailable = errors.New("push transport unavailable")
	ErrNotConnected         = errors.New("push transport not connected")
	ErrWriteRejected        = errors.New("write rejected by server")
	ErrStaleSnapshot        = errors.New("snapshot for inactive conversation")
	ErrUnknownAnnouncement  = errors.New("announcement not loaded")
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
)

type APIError struct {
	Message string `json:"error"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code int) *APIError {
	return &APIError{
		Message: message,
		Code:    code,
	}
}

func HTTPStatusFromError(err error) int {
	switch err {
	case ErrNotFound, ErrUnknownAnnouncement, ErrNoActiveConversation:
		return http.StatusNotFound
	case ErrUnauthorized, ErrInvalidToken, ErrTokenExpired:
		return http.StatusUnauthorized
	case ErrBadRequest, ErrInvalidSelection, ErrWriteRejected:
		return http.StatusBadRequest
	case ErrTransportUnavailable, ErrNotConnected:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
