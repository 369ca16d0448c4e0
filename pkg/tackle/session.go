package tackle

import (
	"context"
	"sync"
)

// Session tracks the signed-in identity and its access token. The zero
// value is a signed-out session.
type Session struct {
	mu     sync.RWMutex
	userID string
	token  string
}

// NewSession creates a signed-out session.
func NewSession() *Session {
	return &Session{}
}

// SignIn installs the identity and token for subsequent requests.
func (s *Session) SignIn(userID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.token = token
}

// SignOut clears the session. Local data is untouched.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = ""
	s.token = ""
}

// UserID reports the signed-in identity, if any.
func (s *Session) UserID(ctx context.Context) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != ""
}

// Token returns the current access token. Empty means signed out.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}
