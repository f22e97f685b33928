package client

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
		wantPath string
	}{
		{
			name:     "server envelope",
			status:   http.StatusNotFound,
			body:     `{"timestamp":"2024-01-15T10:30:00","status":404,"error":"Not Found","message":"document not found","path":"/api/documents/9","errorCode":"DOCUMENT_NOT_FOUND"}`,
			wantCode: "DOCUMENT_NOT_FOUND",
			wantMsg:  "document not found",
			wantPath: "/api/documents/9",
		},
		{
			name:     "envelope without message falls back to error",
			status:   http.StatusBadRequest,
			body:     `{"error":"Bad Request","errorCode":"VALIDATION_FAILED"}`,
			wantCode: "VALIDATION_FAILED",
			wantMsg:  "Bad Request",
		},
		{
			name:    "plain text body",
			status:  http.StatusBadGateway,
			body:    "upstream unavailable\n",
			wantMsg: "upstream unavailable",
		},
		{
			name:    "empty body",
			status:  http.StatusServiceUnavailable,
			wantMsg: "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseError(tt.status, []byte(tt.body))
			apiErr, ok := AsAPIError(err)
			if !ok {
				t.Fatalf("parseError() = %T, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.wantCode)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
			if apiErr.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", apiErr.Path, tt.wantPath)
			}
		})
	}
}

func TestAPIError_Predicates(t *testing.T) {
	if !(&APIError{StatusCode: 401}).IsUnauthorized() {
		t.Error("401 should be unauthorized")
	}
	if !(&APIError{StatusCode: 403}).IsForbidden() {
		t.Error("403 should be forbidden")
	}
	if !(&APIError{StatusCode: 404}).IsNotFound() {
		t.Error("404 should be not found")
	}
	if (&APIError{StatusCode: 500}).IsUnauthorized() {
		t.Error("500 should not be unauthorized")
	}
}

func TestRefreshError(t *testing.T) {
	cause := &APIError{StatusCode: http.StatusUnauthorized, Code: "INVALID_REFRESH_TOKEN"}
	err := fmt.Errorf("GET /users/me: %w", &RefreshError{Err: cause})

	if !errors.Is(err, ErrSessionExpired) {
		t.Error("RefreshError should match ErrSessionExpired")
	}
	apiErr, ok := AsAPIError(err)
	if !ok || apiErr != cause {
		t.Error("RefreshError should unwrap to its cause")
	}
	if !refreshRejected(err) {
		t.Error("a 401 from the refresh call should count as rejected")
	}
	if refreshRejected(&RefreshError{Err: errors.New("dial tcp: connection refused")}) {
		t.Error("a transport failure is not a rejection")
	}
	if !refreshRejected(&RefreshError{Err: errNoRefreshToken}) {
		t.Error("a missing refresh token counts as rejected")
	}
}
