package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Config holds the sliding-window and lockout parameters.
type Config struct {
	Window        time.Duration // attempt-counting window
	MaxAttempts   int           // attempts allowed within one window
	BlockDuration time.Duration // lockout length once the threshold is hit
	SweepInterval time.Duration // how often stale entries are collected
}

func DefaultConfig() Config {
	return Config{
		Window:        time.Minute,
		MaxAttempts:   3,
		BlockDuration: 15 * time.Minute,
		SweepInterval: 5 * time.Minute,
	}
}

// Result is the outcome of a single limiter check. RetryAfter is in whole
// minutes, rounded up, and only meaningful when Allowed is false.
type Result struct {
	Allowed    bool
	RetryAfter int
}

type entry struct {
	count       int
	windowStart time.Time
	blocked     bool
}

// Limiter tracks voting and verification attempts per identity key. State is
// process-local and lost on restart; losing it fails open, not closed.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	cfg     Config
	now     func() time.Time
}

func New(cfg Config) *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Check records one attempt for key and reports whether it is allowed.
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	e, ok := l.entries[key]
	if !ok {
		l.entries[key] = &entry{count: 1, windowStart: now}
		return Result{Allowed: true}
	}

	if e.blocked {
		if now.Sub(e.windowStart) < l.cfg.BlockDuration {
			remaining := l.cfg.BlockDuration - now.Sub(e.windowStart)
			return Result{RetryAfter: ceilMinutes(remaining)}
		}
		// Lockout served; start over.
		*e = entry{count: 1, windowStart: now}
		return Result{Allowed: true}
	}

	if now.Sub(e.windowStart) > l.cfg.Window {
		*e = entry{count: 1, windowStart: now}
		return Result{Allowed: true}
	}

	e.count++
	if e.count > l.cfg.MaxAttempts {
		// The block counts from this moment, not from the first attempt.
		e.blocked = true
		e.windowStart = now
		return Result{RetryAfter: ceilMinutes(l.cfg.BlockDuration)}
	}

	return Result{Allowed: true}
}

// Run sweeps stale entries until ctx is canceled. Best-effort housekeeping to
// bound memory growth; correctness does not depend on it.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.sweep(); n > 0 {
				slog.Debug("rate limiter sweep", "removed", n)
			}
		}
	}
}

func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, e := range l.entries {
		if now.Sub(e.windowStart) > l.cfg.BlockDuration {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

func ceilMinutes(d time.Duration) int {
	m := int(d / time.Minute)
	if d%time.Minute != 0 {
		m++
	}
	return m
}
