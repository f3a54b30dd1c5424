package auth

import (
	"sync"
	"time"
)

// LoginThrottle slows down password guessing from one client against one
// account. It complements the per-account lockout stored on the user row:
// the lockout survives restarts, the throttle answers before any database work.
type LoginThrottle struct {
	mu      sync.Mutex
	entries map[throttleKey]*throttleEntry
	limit   int
	window  time.Duration
	lockout time.Duration
	now     func() time.Time
}

type throttleKey struct {
	ip       string
	username string
}

type throttleEntry struct {
	failures    int
	windowStart time.Time
	blockedTill time.Time
}

// pruneAbove is the map size at which expired entries are swept on write.
const pruneAbove = 1024

// NewLoginThrottle allows limit failures per window before blocking the
// (ip, username) pair for lockout. Zero values take the config defaults.
func NewLoginThrottle(limit int, window, lockout time.Duration) *LoginThrottle {
	if limit <= 0 {
		limit = defaultMaxLoginAttempts
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if lockout <= 0 {
		lockout = defaultLockoutDuration
	}
	return &LoginThrottle{
		entries: make(map[throttleKey]*throttleEntry),
		limit:   limit,
		window:  window,
		lockout: lockout,
		now:     time.Now,
	}
}

// Check reports whether a login attempt may proceed, and if not, how long the
// caller should wait.
func (t *LoginThrottle) Check(ip, username string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[throttleKey{ip, username}]
	if !ok {
		return 0, true
	}
	now := t.now()
	if now.Before(e.blockedTill) {
		return e.blockedTill.Sub(now), false
	}
	return 0, true
}

// Failed counts a failed attempt and reports whether the pair is now blocked.
func (t *LoginThrottle) Failed(ip, username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	key := throttleKey{ip, username}
	e, ok := t.entries[key]
	if !ok || now.Sub(e.windowStart) > t.window {
		if len(t.entries) >= pruneAbove {
			t.prune(now)
		}
		e = &throttleEntry{windowStart: now}
		t.entries[key] = e
	}

	e.failures++
	if e.failures >= t.limit {
		e.blockedTill = now.Add(t.lockout)
		return true
	}
	return false
}

// Succeeded forgets the pair's failures.
func (t *LoginThrottle) Succeeded(ip, username string) {
	t.mu.Lock()
	delete(t.entries, throttleKey{ip, username})
	t.mu.Unlock()
}

func (t *LoginThrottle) prune(now time.Time) {
	for key, e := range t.entries {
		if now.Sub(e.windowStart) > t.window && !now.Before(e.blockedTill) {
			delete(t.entries, key)
		}
	}
}
