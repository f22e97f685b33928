package client

import (
	"context"

	"docs-go/internal/docs"
)

// UsersService handles the signed-in user's profile.
type UsersService struct {
	client *Client
}

// Me returns the current user's profile.
func (s *UsersService) Me(ctx context.Context) (*docs.User, error) {
	var u docs.User
	if err := s.client.get(ctx, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Update changes profile fields. Nil fields are left unchanged.
func (s *UsersService) Update(ctx context.Context, req docs.UpdateUserRequest) (*docs.User, error) {
	var u docs.User
	if err := s.client.put(ctx, "/users/me", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UploadAvatar uploads an avatar image and returns its new URL.
func (s *UsersService) UploadAvatar(ctx context.Context, filename string, data []byte) (string, error) {
	var resp struct {
		AvatarURL string `json:"avatarUrl"`
	}
	files := []formFile{{field: "file", filename: filename, data: data}}
	if err := s.client.postForm(ctx, "/users/me/avatar", nil, files, &resp); err != nil {
		return "", err
	}
	return resp.AvatarURL, nil
}

// UpdateEmail changes the account email using a verification code.
func (s *UsersService) UpdateEmail(ctx context.Context, req docs.UpdateEmailRequest) (*docs.MessageResponse, error) {
	var resp docs.MessageResponse
	if err := s.client.put(ctx, "/users/me/email", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdatePassword changes the account password.
func (s *UsersService) UpdatePassword(ctx context.Context, req docs.UpdatePasswordRequest) (*docs.MessageResponse, error) {
	var resp docs.MessageResponse
	if err := s.client.put(ctx, "/users/me/password", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
