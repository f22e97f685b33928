package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrSessionExpired matches any error caused by a refresh that could not
// recover the session. The session has been cleared when it is returned.
var ErrSessionExpired = errors.New("session expired")

var errNoRefreshToken = errors.New("no refresh token held")

// APIError represents a non-2xx response from the API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Code is the server's errorCode, if any (e.g. "DOCUMENT_NOT_FOUND").
	Code string
	// Message is a human-readable error message.
	Message string
	// Path is the request path reported by the server.
	Path string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized returns true if the request was rejected for missing or
// expired credentials.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsForbidden returns true if the user lacks permission for the request.
func (e *APIError) IsForbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// IsNotFound returns true if the resource does not exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// RefreshError is returned when the access token could not be refreshed.
// It wraps the underlying cause and matches ErrSessionExpired.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refreshing session: %v", e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

func (e *RefreshError) Is(target error) bool {
	return target == ErrSessionExpired
}

// AsAPIError returns the *APIError in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// parseError builds an *APIError from a response body. The server's JSON
// envelope is used when present; otherwise the raw body becomes the message.
func parseError(statusCode int, body []byte) error {
	var envelope struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		Path      string `json:"path"`
		ErrorCode string `json:"errorCode"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && (envelope.Message != "" || envelope.ErrorCode != "") {
		msg := envelope.Message
		if msg == "" {
			msg = envelope.Error
		}
		return &APIError{
			StatusCode: statusCode,
			Code:       envelope.ErrorCode,
			Message:    msg,
			Path:       envelope.Path,
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return &APIError{StatusCode: statusCode, Message: msg}
}
