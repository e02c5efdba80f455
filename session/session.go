// Package session keeps track of the identity verifications completed by the
// external provider until the browser claims them. The provider reports the
// result server-to-server, so it cannot hand a cookie to the browser; instead
// the verification is deposited here under the browser generated session id
// and redeemed exactly once by the claim request.
package session

import (
	"sync"
	"time"

	"github.com/vocdoni/zkvote/log"
)

// DefaultTTL is the time a verified session can wait to be claimed.
const DefaultTTL = 5 * time.Minute

// Store is the registry of verified, not yet claimed, sessions.
type Store interface {
	// MarkVerified records the session as verified now, overwriting any
	// previous entry. Expired entries of other sessions are swept.
	MarkVerified(sessionID string)
	// Claim consumes the session. It returns true only if the session was
	// verified and not expired; a session is claimable at most once.
	Claim(sessionID string) bool
	// Prune removes every expired entry and returns how many were removed.
	Prune() int
	// Len returns the number of entries, expired or not.
	Len() int
}

// MemoryStore is a process-local Store. Entries are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	verified map[string]time.Time
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore returns an empty store. A non positive ttl uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		verified: make(map[string]time.Time),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock replaces the time source. Used in tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// TTL returns the configured time to live.
func (s *MemoryStore) TTL() time.Duration {
	return s.ttl
}

func (s *MemoryStore) MarkVerified(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.verified[sessionID] = now
	if n := s.prune(now); n > 0 {
		log.Debugw("pruned expired verification sessions", "count", n)
	}
}

func (s *MemoryStore) Claim(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	verifiedAt, ok := s.verified[sessionID]
	if !ok {
		return false
	}
	delete(s.verified, sessionID)
	return !s.expired(verifiedAt, s.now())
}

func (s *MemoryStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prune(s.now())
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.verified)
}

// prune must be called with the lock held.
func (s *MemoryStore) prune(now time.Time) int {
	removed := 0
	for id, verifiedAt := range s.verified {
		if s.expired(verifiedAt, now) {
			delete(s.verified, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) expired(verifiedAt, now time.Time) bool {
	return now.Sub(verifiedAt) > s.ttl
}
