package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter() (*Limiter, *time.Time) {
	l := New(DefaultConfig())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLockoutAfterMaxAttempts(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 3; i++ {
		if res := l.Check("k"); !res.Allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	res := l.Check("k")
	if res.Allowed {
		t.Fatal("4th attempt within the window should be denied")
	}
	if res.RetryAfter != 15 {
		t.Fatalf("expected retryAfter 15 minutes, got %d", res.RetryAfter)
	}
}

func TestBlockedRetryAfterCountsDown(t *testing.T) {
	l, now := newTestLimiter()

	for i := 0; i < 4; i++ {
		l.Check("k")
	}

	*now = now.Add(10*time.Minute + 30*time.Second)
	res := l.Check("k")
	if res.Allowed {
		t.Fatal("still inside the lockout, should be denied")
	}
	if res.RetryAfter != 5 {
		t.Fatalf("expected remaining 4m30s rounded up to 5, got %d", res.RetryAfter)
	}
}

func TestBlockExpiresToFreshWindow(t *testing.T) {
	l, now := newTestLimiter()

	for i := 0; i < 4; i++ {
		l.Check("k")
	}

	*now = now.Add(16 * time.Minute)
	if res := l.Check("k"); !res.Allowed {
		t.Fatal("lockout elapsed, should be allowed again")
	}
	// The reset window admits the usual number of attempts again.
	l.Check("k")
	if res := l.Check("k"); !res.Allowed {
		t.Fatal("3rd attempt of the fresh window should be allowed")
	}
}

func TestWindowExpiryResets(t *testing.T) {
	l, now := newTestLimiter()

	l.Check("k")
	l.Check("k")
	l.Check("k")

	*now = now.Add(2 * time.Minute)
	if res := l.Check("k"); !res.Allowed {
		t.Fatal("window elapsed without block, should be allowed")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 4; i++ {
		l.Check("a")
	}
	if res := l.Check("b"); !res.Allowed {
		t.Fatal("blocking one key must not affect another")
	}
}

func TestSweepRemovesStaleEntries(t *testing.T) {
	l, now := newTestLimiter()

	l.Check("stale")
	*now = now.Add(20 * time.Minute)
	l.Check("fresh")

	if n := l.sweep(); n != 1 {
		t.Fatalf("expected one stale entry removed, got %d", n)
	}
	if _, ok := l.entries["fresh"]; !ok {
		t.Fatal("fresh entry should survive the sweep")
	}
}
