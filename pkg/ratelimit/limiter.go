package ratelimit

import (
	"sync"
	"time"
)

type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type Limiter interface {
	Allow(key string, limit int) Decision
}

// SlidingLimiter keeps one ordered timestamp slice per key and recomputes
// the trailing window on every check. Denied attempts are not recorded, so
// a throttled caller cannot push its own window further out. State lives
// for the process lifetime; a key is pruned only when it is checked again.
type SlidingLimiter struct {
	mu     sync.Mutex
	window time.Duration
	items  map[string][]time.Time

	now func() time.Time // test hook
}

func NewSliding(window time.Duration) *SlidingLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &SlidingLimiter{
		window: window,
		items:  make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (l *SlidingLimiter) Allow(key string, limit int) Decision {
	if limit <= 0 {
		limit = 1
	}
	now := l.now().UTC()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.items[key]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		l.items[key] = kept
		return Decision{
			Allowed:   false,
			Count:     len(kept),
			Limit:     limit,
			Remaining: 0,
			ResetAt:   kept[0].Add(l.window),
		}
	}

	kept = append(kept, now)
	l.items[key] = kept
	return Decision{
		Allowed:   true,
		Count:     len(kept),
		Limit:     limit,
		Remaining: limit - len(kept),
		ResetAt:   kept[0].Add(l.window),
	}
}
