package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/sitearchive/internal/model"
)

// ErrNotFound is returned for an unknown or expired token.
var ErrNotFound = errors.New("session not found")

// Session is the discovery state a later extraction request refers to.
// The links of each base address are kept in the order they were returned
// by discovery, so a selection string indexes the same list the user saw.
type Session struct {
	Token     string
	CreatedAt time.Time
	Reports   []*model.SessionReport
}

// Links returns the discovered addresses of every base address, in order
// and without duplicates.
func (s *Session) Links() []string {
	seen := make(map[string]bool)
	links := make([]string, 0)
	for _, r := range s.Reports {
		for _, link := range r.Links() {
			if !seen[link] {
				seen[link] = true
				links = append(links, link)
			}
		}
	}
	return links
}

// Report returns the report for baseURL, or nil.
func (s *Session) Report(baseURL string) *model.SessionReport {
	for _, r := range s.Reports {
		if r.BaseURL == baseURL {
			return r
		}
	}
	return nil
}

// Store keeps discovery sessions keyed by an opaque token. Each client
// gets its own token, so concurrent users never see each other's links.
//
// Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets how long a session lives. Zero keeps sessions until deleted.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty Store. Sessions expire after one hour unless
// WithTTL says otherwise.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      time.Hour,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores reports under a new random token and returns the session.
func (s *Store) Create(reports []*model.SessionReport) *Session {
	sess := &Session{
		Token:     uuid.NewString(),
		CreatedAt: s.now(),
		Reports:   reports,
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session for token.
func (s *Store) Get(token string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok || s.expired(sess) {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete removes the session for token. Unknown tokens are ignored.
func (s *Store) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Prune removes expired sessions and returns how many were removed.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, including expired ones not
// yet pruned.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) expired(sess *Session) bool {
	return s.ttl > 0 && s.now().Sub(sess.CreatedAt) > s.ttl
}
