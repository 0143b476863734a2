package ratelimit

import (
	"testing"
	"time"
)

func TestSlidingLimiterWindow(t *testing.T) {
	limiter := NewSliding(time.Second)
	base := time.Unix(1700000000, 0).UTC()
	now := base
	limiter.now = func() time.Time { return now }
	key := "client-a"

	for i := 0; i < 3; i++ {
		now = base.Add(time.Duration(i) * 100 * time.Millisecond)
		d := limiter.Allow(key, 3)
		if !d.Allowed {
			t.Fatalf("call %d should be allowed, got %+v", i+1, d)
		}
	}

	now = base.Add(300 * time.Millisecond)
	fourth := limiter.Allow(key, 3)
	if fourth.Allowed {
		t.Fatalf("fourth call within window should be denied, got %+v", fourth)
	}
	if fourth.Count != 3 || fourth.Remaining != 0 {
		t.Fatalf("unexpected denied decision: %+v", fourth)
	}

	now = base.Add(1100 * time.Millisecond)
	after := limiter.Allow(key, 3)
	if !after.Allowed {
		t.Fatalf("call after window should be allowed, got %+v", after)
	}
}

func TestSlidingLimiterDeniedAttemptNotRecorded(t *testing.T) {
	limiter := NewSliding(time.Second)
	base := time.Unix(1700000000, 0).UTC()
	now := base
	limiter.now = func() time.Time { return now }
	key := "client-b"

	limiter.Allow(key, 1)
	for i := 0; i < 5; i++ {
		now = base.Add(time.Duration(i+1) * 50 * time.Millisecond)
		if d := limiter.Allow(key, 1); d.Allowed {
			t.Fatalf("call %d within window should be denied", i+1)
		}
	}

	// Only the single allowed timestamp occupies the window; the moment it
	// ages out the key is usable again despite the denied burst.
	now = base.Add(1001 * time.Millisecond)
	if d := limiter.Allow(key, 1); !d.Allowed {
		t.Fatalf("denied attempts must not extend the window, got %+v", d)
	}
}

func TestSlidingLimiterWindowInvariant(t *testing.T) {
	limiter := NewSliding(time.Second)
	base := time.Unix(1700000000, 0).UTC()
	now := base
	limiter.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		now = base.Add(time.Duration(i) * 300 * time.Millisecond)
		limiter.Allow("k", 100)
	}

	limiter.mu.Lock()
	stamps := limiter.items["k"]
	limiter.mu.Unlock()
	cutoff := now.Add(-time.Second)
	for i, ts := range stamps {
		if !ts.After(cutoff) {
			t.Fatalf("stale timestamp %v kept after check at %v", ts, now)
		}
		if i > 0 && ts.Before(stamps[i-1]) {
			t.Fatalf("timestamps out of order: %v before %v", ts, stamps[i-1])
		}
	}
}

func TestSlidingLimiterKeyIsolation(t *testing.T) {
	limiter := NewSliding(time.Minute)
	limiter.Allow("a", 1)
	if d := limiter.Allow("a", 1); d.Allowed {
		t.Fatal("second call for a should be denied")
	}
	if d := limiter.Allow("b", 1); !d.Allowed {
		t.Fatal("fresh key b should be allowed")
	}
}

func TestSlidingLimiterDefaults(t *testing.T) {
	limiter := NewSliding(0)
	if limiter.window != time.Minute {
		t.Fatalf("expected default one-minute window, got %v", limiter.window)
	}
	if d := limiter.Allow("k", 0); !d.Allowed || d.Limit != 1 {
		t.Fatalf("expected limit floor of 1 and allowed decision, got %+v", d)
	}
}
