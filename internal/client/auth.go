package client

import (
	"context"
	"net/http"
	"net/url"

	"docs-go/internal/docs"
)

// AuthService handles registration, login and password recovery.
type AuthService struct {
	client *Client
}

// Register creates an account. The server emails a verification code.
func (s *AuthService) Register(ctx context.Context, req docs.RegisterRequest) (*docs.RegisterResponse, error) {
	var resp docs.RegisterResponse
	if err := s.client.post(ctx, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyEmail confirms an email address with the code sent on registration.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (*docs.MessageResponse, error) {
	body := map[string]string{"email": email, "code": code}
	var resp docs.MessageResponse
	if err := s.client.post(ctx, "/auth/verify-email", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges credentials for a token pair and the user's profile.
// The caller is responsible for storing the result in the session.
func (s *AuthService) Login(ctx context.Context, req docs.LoginRequest) (*docs.LoginResponse, error) {
	var resp docs.LoginResponse
	if err := s.client.post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the current tokens on the server.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.client.post(ctx, "/auth/logout", nil, nil)
}

// RefreshToken exchanges a refresh token for a new token pair. The server
// takes the token as a query parameter rather than a header or body.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*docs.TokenResponse, error) {
	var resp docs.TokenResponse
	query := url.Values{"refreshToken": {refreshToken}}
	if err := s.client.doRequest(ctx, http.MethodPost, refreshTokenPath, query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForgotPassword asks the server to email a password reset link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*docs.MessageResponse, error) {
	var resp docs.MessageResponse
	if err := s.client.post(ctx, "/auth/forgot-password", map[string]string{"email": email}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetPassword sets a new password using the token from the reset email.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (*docs.MessageResponse, error) {
	body := map[string]string{"token": token, "password": password}
	var resp docs.MessageResponse
	if err := s.client.post(ctx, "/auth/reset-password", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
