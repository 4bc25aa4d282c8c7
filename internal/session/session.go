// package session holds per-browser session state for the web app.
//
// A session exists per browser cookie and carries at most one Spotify
// credential. Sessions live in process memory only: they are created on
// first request, populated by the OAuth callback, and gone after logout
// or restart.
package session

import (
	"sync"
	"time"

	"github.com/apalmeirim/playlist-copycat/internal/shared"
	"golang.org/x/oauth2"
)

// Credential is a delegated-access token with its grant metadata.
//
// Only the credential manager mutates a credential (on refresh); every
// other component treats it as read-only.
type Credential struct {
	Token  *oauth2.Token
	Scopes []string
}

// Expired reports whether the access token is past its expiry, with a
// small skew so tokens about to lapse count as expired.
func (c *Credential) Expired() bool {
	if c == nil || c.Token == nil || c.Token.AccessToken == "" {
		return true
	}
	if c.Token.Expiry.IsZero() {
		return false
	}
	return time.Now().After(c.Token.Expiry.Add(-30 * time.Second))
}

// Session is the per-cookie state. UserID is cached after the first
// current-user lookup so repeated copies skip the round trip.
type Session struct {
	ID         string
	UserID     string
	Credential *Credential
	CreatedAt  time.Time
}

// Authenticated reports whether the session carries any credential at
// all. An expired-but-refreshable credential still counts.
func (s *Session) Authenticated() bool {
	return s != nil && s.Credential != nil && s.Credential.Token != nil
}

// Store manages session lifecycle keyed by session ID.
type Store interface {
	Create() *Session
	Get(id string) (*Session, bool)
	Put(s *Session)
	Clear(id string)
}

// MemoryStore is an in-process Store. Sessions do not survive restart,
// which matches the no-persistence rule for credentials.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Create makes a new empty session with a generated ID and stores it.
func (m *MemoryStore) Create() *Session {
	s := &Session{
		ID:        shared.GenerateID(),
		CreatedAt: time.Now(),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session for the given ID.
func (m *MemoryStore) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Put stores the session, replacing any existing entry with the same ID.
func (m *MemoryStore) Put(s *Session) {
	if s == nil || s.ID == "" {
		return
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
}

// Clear removes the session. Idempotent: clearing an unknown or
// already-cleared ID is a no-op.
func (m *MemoryStore) Clear(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
