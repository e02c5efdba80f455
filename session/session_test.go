package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	s := NewMemoryStore(DefaultTTL)
	s.SetClock(clock.Now)
	return s, clock
}

func TestClaimOnce(t *testing.T) {
	c := qt.New(t)
	s, _ := newTestStore()

	c.Assert(s.Claim("abc"), qt.IsFalse)

	s.MarkVerified("abc")
	c.Assert(s.Claim("abc"), qt.IsTrue)
	c.Assert(s.Claim("abc"), qt.IsFalse)
	c.Assert(s.Len(), qt.Equals, 0)
}

func TestClaimExpired(t *testing.T) {
	c := qt.New(t)
	s, clock := newTestStore()

	s.MarkVerified("abc")
	clock.Advance(DefaultTTL + time.Second)
	c.Assert(s.Claim("abc"), qt.IsFalse)
	c.Assert(s.Len(), qt.Equals, 0)

	// exactly at the ttl the session is still valid
	s.MarkVerified("def")
	clock.Advance(DefaultTTL)
	c.Assert(s.Claim("def"), qt.IsTrue)
}

func TestMarkVerifiedRefreshes(t *testing.T) {
	c := qt.New(t)
	s, clock := newTestStore()

	s.MarkVerified("abc")
	clock.Advance(4 * time.Minute)
	s.MarkVerified("abc")
	clock.Advance(4 * time.Minute)
	c.Assert(s.Claim("abc"), qt.IsTrue)
}

func TestMarkVerifiedSweeps(t *testing.T) {
	c := qt.New(t)
	s, clock := newTestStore()

	s.MarkVerified("old-1")
	s.MarkVerified("old-2")
	clock.Advance(DefaultTTL + time.Millisecond)
	s.MarkVerified("fresh")
	c.Assert(s.Len(), qt.Equals, 1)
	c.Assert(s.Claim("fresh"), qt.IsTrue)
}

func TestPrune(t *testing.T) {
	c := qt.New(t)
	s, clock := newTestStore()

	s.MarkVerified("a")
	clock.Advance(time.Minute)
	s.MarkVerified("b")
	clock.Advance(DefaultTTL - 30*time.Second)
	c.Assert(s.Prune(), qt.Equals, 1)
	c.Assert(s.Len(), qt.Equals, 1)
	c.Assert(s.Claim("b"), qt.IsTrue)
}

func TestConcurrentClaim(t *testing.T) {
	c := qt.New(t)
	s := NewMemoryStore(0)
	c.Assert(s.TTL(), qt.Equals, DefaultTTL)

	ids := make([]string, 20)
	for i := range ids {
		ids[i] = uuid.NewString()
		s.MarkVerified(ids[i])
	}

	var wg sync.WaitGroup
	claims := make([]atomic.Int32, len(ids))
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, id := range ids {
				if s.Claim(id) {
					claims[i].Add(1)
				}
			}
		}()
	}
	wg.Wait()
	for i := range ids {
		c.Assert(claims[i].Load(), qt.Equals, int32(1), qt.Commentf("session %s", ids[i]))
	}
}
