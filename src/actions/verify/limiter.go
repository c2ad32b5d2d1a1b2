package verify

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// cleanupThreshold is the minimum map size before a cleanup pass runs.
	cleanupThreshold = 500
	// maxIdleAge is the duration after which an idle member entry is eligible for cleanup.
	maxIdleAge = 10 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemberLimiter rate limits commands per chat member and prunes idle entries inline.
type MemberLimiter struct {
	mu      sync.Mutex
	members map[string]*limiterEntry
	r       rate.Limit
	b       int
	now     func() time.Time
}

// NewMemberLimiter allows b commands at once and r per second after that.
// A zero rate disables limiting.
func NewMemberLimiter(r rate.Limit, b int) *MemberLimiter {
	if b <= 0 {
		b = 1
	}
	return &MemberLimiter{members: make(map[string]*limiterEntry), r: r, b: b, now: time.Now}
}

// Allow reports whether the member may run a command now.
func (l *MemberLimiter) Allow(memberID string) bool {
	if l == nil || l.r == 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.members) > cleanupThreshold {
		cutoff := now.Add(-maxIdleAge)
		for k, e := range l.members {
			if e.lastSeen.Before(cutoff) {
				delete(l.members, k)
			}
		}
	}

	e, ok := l.members[memberID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.members[memberID] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}
