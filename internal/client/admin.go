package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"docs-go/internal/docs"
)

// AdminService handles administrator-only endpoints.
type AdminService struct {
	client *Client
}

// DocumentLogFilter narrows a document-log listing. Zero values match everything.
type DocumentLogFilter struct {
	UserID        *int64
	OperationType string
}

// User returns any user's profile.
func (s *AdminService) User(ctx context.Context, id int64) (*docs.User, error) {
	var u docs.User
	if err := s.client.get(ctx, fmt.Sprintf("/users/%d", id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateRole changes a user's role.
func (s *AdminService) UpdateRole(ctx context.Context, id int64, role docs.Role) (*docs.MessageResponse, error) {
	var resp docs.MessageResponse
	req := docs.UpdateUserRoleRequest{Role: role}
	if err := s.client.put(ctx, fmt.Sprintf("/users/%d/role", id), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoginLogs returns a page of login audit entries.
func (s *AdminService) LoginLogs(ctx context.Context, page, size int) (*docs.Page[docs.SystemLog], error) {
	var logs docs.Page[docs.SystemLog]
	if err := s.client.get(ctx, "/logs/login", pageValues(page, size), &logs); err != nil {
		return nil, err
	}
	return &logs, nil
}

// DocumentLogs returns a page of document operation audit entries.
func (s *AdminService) DocumentLogs(ctx context.Context, page, size int, filter DocumentLogFilter) (*docs.Page[docs.SystemLog], error) {
	path := "/admin/document-logs"
	if filter.UserID != nil {
		path += fmt.Sprintf("/user/%d", *filter.UserID)
	}
	if filter.OperationType != "" {
		path += "/type/" + url.PathEscape(filter.OperationType)
	}

	var logs docs.Page[docs.SystemLog]
	if err := s.client.get(ctx, path, pageValues(page, size), &logs); err != nil {
		return nil, err
	}
	return &logs, nil
}

func pageValues(page, size int) url.Values {
	v := url.Values{"page": {strconv.Itoa(page)}}
	if size > 0 {
		v.Set("size", strconv.Itoa(size))
	}
	return v
}
