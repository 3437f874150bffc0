package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"association-admin-api/internal/model"
)

type sessionState struct {
	User                  *model.User `json:"user"`
	BirthdayNotifications bool        `json:"birthdayNotifications"`
	ExpiryNotifications   bool        `json:"expiryNotifications"`
	ExpiredSession        bool        `json:"expiredSession"`
}

// Session is the locally persisted client state: the signed-in user and the
// notification flags. With an empty path it lives in memory only.
type Session struct {
	mu    sync.Mutex
	path  string
	state sessionState
}

// OpenSession loads path if it exists.
func OpenSession(path string) (*Session, error) {
	s := &Session{path: path}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("parsing session %s: %w", path, err)
	}
	return s, nil
}

func (s *Session) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

// SetUser stores u and clears the expired flag.
func (s *Session) SetUser(u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.User = u
	s.state.ExpiredSession = false
	return s.save()
}

// Expire drops the user and raises the expired flag. Notification
// preferences survive.
func (s *Session) Expire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.User = nil
	s.state.ExpiredSession = true
	return s.save()
}

// Clear drops the user after a deliberate logout.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.User = nil
	return s.save()
}

func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ExpiredSession
}

func (s *Session) Notifications() (birthday, expiry bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.BirthdayNotifications, s.state.ExpiryNotifications
}

func (s *Session) SetNotifications(birthday, expiry bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.BirthdayNotifications = birthday
	s.state.ExpiryNotifications = expiry
	return s.save()
}

// save writes atomically via a temp file. Caller holds mu.
func (s *Session) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return os.Rename(tmp, s.path)
}
