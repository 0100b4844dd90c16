// Package session holds the bearer token for the current user and mirrors
// it to a file in the data directory.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/zarlcorp/core/pkg/zfilesystem"
)

const tokenFile = "token"

// Session is the stored authentication token. The zero value is not usable;
// use Open or NewMemory.
type Session struct {
	mu    sync.RWMutex
	token string
	fs    zfilesystem.ReadWriteFileFS // nil for in-memory sessions
}

// Open loads the session persisted in fsys. A missing token file yields an
// empty session.
func Open(fsys zfilesystem.ReadWriteFileFS) (*Session, error) {
	s := &Session{fs: fsys}

	data, err := fsys.ReadFile(tokenFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("open session: read token: %w", err)
	}

	s.token = strings.TrimSpace(string(data))
	return s, nil
}

// NewMemory returns a session that is never written anywhere.
func NewMemory() *Session {
	return &Session{}
}

// Token returns the stored token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the stored token. An empty token is the same as Clear.
func (s *Session) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.Clear()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fs != nil {
		if err := s.fs.WriteFile(tokenFile, []byte(token), 0o600); err != nil {
			return fmt.Errorf("set token: %w", err)
		}
	}
	s.token = token
	return nil
}

// Clear forgets the token.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	if s.fs == nil {
		return nil
	}
	if err := s.fs.Remove(tokenFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// LoggedIn reports whether a token is stored.
func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}
