package docs

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Storage keys for the persisted session.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	UserInfoKey     = "user_info"
)

// ErrNotAuthenticated is returned when an operation needs a session that does not exist.
var ErrNotAuthenticated = errors.New("not authenticated")

// KeyValueStore is a string key/value store used to persist session state.
type KeyValueStore interface {
	// Get returns the value for key. ok is false if the key is absent.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any existing value.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}

// Session holds the credentials and profile of the signed-in user.
// Tokens are mirrored to the durable store and the profile to the
// session-scoped store so that a new process can pick them up.
// Session is safe for concurrent use.
type Session struct {
	mu           sync.RWMutex
	local        KeyValueStore
	scoped       KeyValueStore
	logger       Logger
	accessToken  string
	refreshToken string
	user         *User
}

// NewSession creates a session backed by the given stores and restores any
// persisted state. The cached profile is only restored when an access token
// is also present; an unreadable profile is discarded.
func NewSession(local, scoped KeyValueStore, logger Logger) (*Session, error) {
	if logger == nil {
		logger = NewNopLogger()
	}
	s := &Session{local: local, scoped: scoped, logger: logger}

	access, _, err := local.Get(AccessTokenKey)
	if err != nil {
		return nil, fmt.Errorf("reading access token: %w", err)
	}
	refresh, _, err := local.Get(RefreshTokenKey)
	if err != nil {
		return nil, fmt.Errorf("reading refresh token: %w", err)
	}
	s.accessToken = access
	s.refreshToken = refresh

	if err := s.restoreUser(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) restoreUser() error {
	if s.accessToken == "" {
		return nil
	}
	raw, ok, err := s.scoped.Get(UserInfoKey)
	if err != nil {
		return fmt.Errorf("reading cached user: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.Warn("discarding unreadable cached user", "error", err)
		if err := s.scoped.Delete(UserInfoKey); err != nil {
			return fmt.Errorf("removing cached user: %w", err)
		}
		return nil
	}
	s.user = &u
	return nil
}

// AccessToken returns the current access token, or "" if none is held.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token, or "" if none is held.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// User returns a copy of the cached profile, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether an access token is held.
func (s *Session) IsAuthenticated() bool {
	return s.AccessToken() != ""
}

// Role returns the cached user's role, or "" when no profile is cached.
func (s *Session) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.Role
}

// IsAdmin reports whether the cached user is an administrator.
func (s *Session) IsAdmin() bool {
	return s.Role() == RoleAdministrator
}

// DisplayName returns the username, falling back to email and then "User".
func (s *Session) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.user == nil:
		return "User"
	case s.user.Username != "":
		return s.user.Username
	case s.user.Email != "":
		return s.user.Email
	default:
		return "User"
	}
}

// SetTokens replaces both tokens in memory and in the durable store.
func (s *Session) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
	if err := s.local.Set(AccessTokenKey, access); err != nil {
		return fmt.Errorf("storing access token: %w", err)
	}
	if err := s.local.Set(RefreshTokenKey, refresh); err != nil {
		return fmt.Errorf("storing refresh token: %w", err)
	}
	return nil
}

// SetUser replaces the cached profile.
func (s *Session) SetUser(u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeUserLocked(u)
}

// UpdateUser applies a partial update to the cached profile.
// It does nothing when no profile is cached.
func (s *Session) UpdateUser(p UserPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	return s.storeUserLocked(p.Apply(*s.user))
}

func (s *Session) storeUserLocked(u User) error {
	s.user = &u
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	if err := s.scoped.Set(UserInfoKey, string(data)); err != nil {
		return fmt.Errorf("storing user: %w", err)
	}
	return nil
}

// Login records a fresh token pair and profile.
func (s *Session) Login(access, refresh string, u User) error {
	if err := s.SetTokens(access, refresh); err != nil {
		return err
	}
	return s.SetUser(u)
}

// Clear forgets the tokens and profile and removes them from storage.
// Memory is always cleared; the first storage error is returned.
// Clearing an empty session is a no-op.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.accessToken = ""
	s.refreshToken = ""

	var firstErr error
	for _, step := range []struct {
		store KeyValueStore
		key   string
	}{
		{s.local, AccessTokenKey},
		{s.local, RefreshTokenKey},
		{s.scoped, UserInfoKey},
	} {
		if err := step.store.Delete(step.key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("removing %s: %w", step.key, err)
		}
	}
	return firstErr
}
