package timeparse

import (
	"sync"
	"time"

	"github.com/poiesic/recall/core"
)

// DefaultClarificationTTL is how long a pending clarification is kept
// before it expires.
const DefaultClarificationTTL = 10 * time.Minute

// ClarificationStore holds ambiguous parse results awaiting a caller's
// clarification, keyed by a caller-supplied session or request
// identifier. Entries expire after the configured TTL. The caller owns
// the store; nothing in this package keeps global state.
//
// The clarification options carried by a stored result are
// year-qualified labels, so re-parsing the chosen option resolves
// unambiguously.
type ClarificationStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   func() time.Time
	entries map[string]pendingClarification
}

type pendingClarification struct {
	result    *core.TimeParseResult
	expiresAt time.Time
}

// StoreOption configures a ClarificationStore.
type StoreOption func(*ClarificationStore)

// WithStoreClock sets the clock used for expiry. Default is time.Now.
func WithStoreClock(clock func() time.Time) StoreOption {
	return func(s *ClarificationStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewClarificationStore creates a store with the given TTL. A TTL of 0
// uses DefaultClarificationTTL.
func NewClarificationStore(ttl time.Duration, opts ...StoreOption) *ClarificationStore {
	if ttl <= 0 {
		ttl = DefaultClarificationTTL
	}
	s := &ClarificationStore{
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]pendingClarification),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put records a pending clarification for a session, replacing any
// previous one. Expired entries are swept opportunistically.
func (s *ClarificationStore) Put(sessionID string, result *core.TimeParseResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	for id, entry := range s.entries {
		if entry.expiresAt.Before(now) {
			delete(s.entries, id)
		}
	}
	s.entries[sessionID] = pendingClarification{
		result:    result,
		expiresAt: now.Add(s.ttl),
	}
}

// Get returns the pending clarification for a session, if present and
// not expired.
func (s *ClarificationStore) Get(sessionID string) (*core.TimeParseResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sessionID]
	if !ok {
		return nil, false
	}
	if entry.expiresAt.Before(s.clock()) {
		delete(s.entries, sessionID)
		return nil, false
	}
	return entry.result, true
}

// Delete removes a session's pending clarification, typically after the
// caller has resolved it.
func (s *ClarificationStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
}

// Len returns the number of live entries.
func (s *ClarificationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	count := 0
	for _, entry := range s.entries {
		if !entry.expiresAt.Before(now) {
			count++
		}
	}
	return count
}
