package bot

import (
	"sync"

	"github.com/google/uuid"

	"github.com/TechMC-Studios/discord-bot/internal/author"
)

// panelSession tracks one user's in-flight verification UI. Every new panel
// supersedes the previous one; remote-call results carrying a stale token
// are discarded instead of being rendered onto a replaced surface.
type panelSession struct {
	Token         string
	SearchResults []author.Info
	Page          int
}

type sessionStore struct {
	mu     sync.Mutex
	byUser map[string]*panelSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{byUser: make(map[string]*panelSession)}
}

// Begin starts a fresh session for the user, invalidating any previous one.
func (s *sessionStore) Begin(userID string) *panelSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &panelSession{Token: uuid.NewString()}
	s.byUser[userID] = sess
	return sess
}

// Current returns the user's active session, or nil.
func (s *sessionStore) Current(userID string) *panelSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byUser[userID]
}

// IsCurrent reports whether token still identifies the user's active
// session.
func (s *sessionStore) IsCurrent(userID, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byUser[userID]
	return ok && sess.Token == token
}

// End drops the user's session.
func (s *sessionStore) End(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
}
