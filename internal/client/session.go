package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SessionUser is the profile of the logged-in user as returned by the
// server at login.
type SessionUser struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	RoleCode string `json:"role_code"`
}

// Session holds the bearer token and user of one login. It is set by
// Client.Login, cleared by Client.Logout, and injected wherever the token or
// the user's role is needed. Safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	token     string
	user      SessionUser
	expiresAt time.Time
	now       func() time.Time
}

// NewSession returns an empty, logged-out session.
func NewSession() *Session {
	return &Session{now: time.Now}
}

// Set starts a session.
func (s *Session) Set(token string, user SessionUser, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	s.expiresAt = expiresAt
}

// Clear ends the session.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = SessionUser{}
	s.expiresAt = time.Time{}
}

// Token returns the bearer token, or "" when logged out or expired.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.activeLocked() {
		return ""
	}
	return s.token
}

// User returns the logged-in user and whether the session is active.
func (s *Session) User() (SessionUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.activeLocked() {
		return SessionUser{}, false
	}
	return s.user, true
}

// Role returns the logged-in user's role code, or "" when logged out.
func (s *Session) Role() string {
	u, _ := s.User()
	return u.RoleCode
}

// ExpiresAt returns when the current token stops being accepted.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *Session) activeLocked() bool {
	if s.token == "" {
		return false
	}
	if s.expiresAt.IsZero() {
		return true
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return now().Before(s.expiresAt)
}

type sessionFile struct {
	Token     string      `json:"token"`
	User      SessionUser `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Save writes the session to path with owner-only permissions.
func (s *Session) Save(path string) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(sessionFile{Token: s.token, User: s.user, ExpiresAt: s.expiresAt}, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// LoadSession reads a session saved by Save. A missing file yields an empty
// session.
func LoadSession(path string) (*Session, error) {
	s := NewSession()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", path, err)
	}
	s.Set(f.Token, f.User, f.ExpiresAt)
	return s, nil
}

// RemoveSession deletes a saved session file. A missing file is not an error.
func RemoveSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
