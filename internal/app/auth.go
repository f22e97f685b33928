package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"docs-go/internal/avatar"
	"docs-go/internal/database"
	"docs-go/internal/docs"
)

// AuthStatus describes the stored session.
type AuthStatus struct {
	Authenticated bool
	User          *docs.User
	Claims        *docs.AccessClaims
	HasRefresh    bool
}

// Register creates an account.
func (a *DocsApp) Register(ctx context.Context, username, email, password string) (*docs.RegisterResponse, error) {
	if err := a.persistOperation(email); err != nil {
		return nil, err
	}
	resp, err := a.client.Auth.Register(ctx, docs.RegisterRequest{Username: username, Email: email, Password: password})
	return resp, a.op.Fail(err)
}

// VerifyEmail confirms an address with the code from the registration email.
func (a *DocsApp) VerifyEmail(ctx context.Context, email, code string) (*docs.MessageResponse, error) {
	if err := a.persistOperation(email); err != nil {
		return nil, err
	}
	resp, err := a.client.Auth.VerifyEmail(ctx, email, code)
	return resp, a.op.Fail(err)
}

// Login exchanges credentials for tokens and stores them with the profile.
func (a *DocsApp) Login(ctx context.Context, usernameOrEmail, password string, rememberMe bool) (*docs.User, error) {
	if err := a.persistOperation(usernameOrEmail); err != nil {
		return nil, err
	}
	u, err := a.login(ctx, docs.LoginRequest{UsernameOrEmail: usernameOrEmail, Password: password, RememberMe: rememberMe})
	return u, a.op.Fail(err)
}

func (a *DocsApp) login(ctx context.Context, req docs.LoginRequest) (*docs.User, error) {
	resp, err := a.client.Auth.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := a.session.SetTokens(resp.AccessToken, resp.RefreshToken); err != nil {
		return nil, err
	}

	u := resp.User
	if u == nil {
		if u, err = a.client.Users.Me(ctx); err != nil {
			return nil, fmt.Errorf("fetching profile: %w", err)
		}
	}
	if err := a.session.SetUser(*u); err != nil {
		return nil, err
	}
	a.logger.Info("logged in", "user_id", u.ID)
	return u, nil
}

// Logout invalidates the tokens on the server and forgets the session.
// The local session is cleared even when the server call fails.
func (a *DocsApp) Logout(ctx context.Context) error {
	if err := a.persistOperation(""); err != nil {
		return err
	}
	if !a.session.IsAuthenticated() {
		return a.op.Fail(a.clearSession())
	}
	if err := a.client.Auth.Logout(ctx); err != nil {
		a.logger.Warn("server logout failed", "error", err)
	}
	return a.op.Fail(a.clearSession())
}

func (a *DocsApp) clearSession() error {
	return errors.Join(a.session.Clear(), a.db.ClearScope(database.ScopeSession))
}

// Refresh exchanges the stored refresh token for a new token pair.
// The server may omit a new refresh token, in which case the old one is kept.
func (a *DocsApp) Refresh(ctx context.Context) error {
	if err := a.persistOperation(""); err != nil {
		return err
	}
	refresh := a.session.RefreshToken()
	if refresh == "" {
		return a.op.Fail(docs.ErrNotAuthenticated)
	}
	resp, err := a.client.Auth.RefreshToken(ctx, refresh)
	if err != nil {
		return a.op.Fail(err)
	}
	if resp.RefreshToken != "" {
		refresh = resp.RefreshToken
	}
	return a.op.Fail(a.session.SetTokens(resp.AccessToken, refresh))
}

// ForgotPassword asks the server to email a reset link.
func (a *DocsApp) ForgotPassword(ctx context.Context, email string) (*docs.MessageResponse, error) {
	return a.client.Auth.ForgotPassword(ctx, email)
}

// ResetPassword sets a new password with the token from the reset email.
func (a *DocsApp) ResetPassword(ctx context.Context, token, password string) (*docs.MessageResponse, error) {
	if err := a.persistOperation(""); err != nil {
		return nil, err
	}
	resp, err := a.client.Auth.ResetPassword(ctx, token, password)
	return resp, a.op.Fail(err)
}

// Status reports the stored session without contacting the server.
func (a *DocsApp) Status() AuthStatus {
	st := AuthStatus{
		Authenticated: a.session.IsAuthenticated(),
		User:          a.session.User(),
		HasRefresh:    a.session.RefreshToken() != "",
	}
	if st.Authenticated {
		claims, err := docs.ParseAccessClaims(a.session.AccessToken())
		if err != nil {
			a.logger.Debug("access token is not a readable JWT", "error", err)
		} else {
			st.Claims = &claims
		}
	}
	return st
}

// Me fetches the current profile and caches it in the session.
func (a *DocsApp) Me(ctx context.Context) (*docs.User, error) {
	u, err := a.client.Users.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.session.SetUser(*u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateProfile changes the username and/or email. Nil fields are unchanged.
func (a *DocsApp) UpdateProfile(ctx context.Context, username, email *string) (*docs.User, error) {
	if err := a.persistOperation(""); err != nil {
		return nil, err
	}
	u, err := a.client.Users.Update(ctx, docs.UpdateUserRequest{Username: username, Email: email})
	if err != nil {
		return nil, a.op.Fail(err)
	}
	return u, a.op.Fail(a.session.SetUser(*u))
}

// UploadAvatar downscales the image at path and uploads it as the avatar.
func (a *DocsApp) UploadAvatar(ctx context.Context, path string) (string, error) {
	if err := a.persistOperation(path); err != nil {
		return "", err
	}
	avatarURL, err := a.uploadAvatar(ctx, path)
	return avatarURL, a.op.Fail(err)
}

func (a *DocsApp) uploadAvatar(ctx context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading avatar: %w", err)
	}
	data, name, err := avatar.Prepare(filepath.Base(path), raw, avatar.MaxSide)
	if err != nil {
		return "", err
	}
	avatarURL, err := a.client.Users.UploadAvatar(ctx, name, data)
	if err != nil {
		return "", err
	}
	if err := a.session.UpdateUser(docs.UserPatch{AvatarURL: &avatarURL}); err != nil {
		return "", err
	}
	return avatarURL, nil
}

// UpdateEmail changes the account email using the code sent to the new address.
func (a *DocsApp) UpdateEmail(ctx context.Context, newEmail, code string) (*docs.MessageResponse, error) {
	if err := a.persistOperation(newEmail); err != nil {
		return nil, err
	}
	resp, err := a.client.Users.UpdateEmail(ctx, docs.UpdateEmailRequest{NewEmail: newEmail, VerificationCode: code})
	if err != nil {
		return nil, a.op.Fail(err)
	}
	return resp, a.op.Fail(a.session.UpdateUser(docs.UserPatch{Email: &newEmail}))
}

// UpdatePassword changes the account password.
func (a *DocsApp) UpdatePassword(ctx context.Context, oldPassword, newPassword string) (*docs.MessageResponse, error) {
	if err := a.persistOperation(""); err != nil {
		return nil, err
	}
	resp, err := a.client.Users.UpdatePassword(ctx, docs.UpdatePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword})
	return resp, a.op.Fail(err)
}
