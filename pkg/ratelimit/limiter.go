package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bft-labs/assetcdn/internal/domain"
	"github.com/bft-labs/assetcdn/pkg/clock"
)

// ErrRateLimited is the condition reported when a client exceeds its ceiling.
var ErrRateLimited = domain.ErrRateLimited

// Profile is the ceiling applied by a Limiter.
type Profile struct {
	// MaxRequests is the number of requests admitted per window.
	MaxRequests int

	// Window is the length of a counting window.
	Window time.Duration
}

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// Err returns ErrRateLimited for a rejected decision and nil otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return ErrRateLimited
}

// key is the fixed-size digest of a fingerprint so memory per client does
// not depend on user agent length.
type key [32]byte

type window struct {
	count int
	reset time.Time
}

// Limiter counts requests per fingerprint in fixed windows.
type Limiter struct {
	mu      sync.Mutex
	profile Profile
	clock   clock.Clock
	windows map[key]*window
}

// New creates a Limiter with the given profile. A nil clock uses clock.Real().
func New(profile Profile, c clock.Clock) *Limiter {
	if c == nil {
		c = clock.Real()
	}
	return &Limiter{
		profile: profile,
		clock:   c,
		windows: make(map[key]*window),
	}
}

// Allow records a request from fingerprint and reports whether it is admitted.
func (l *Limiter) Allow(fingerprint string) Decision {
	k := key(blake3.Sum256([]byte(fingerprint)))
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[k]
	if !ok || !now.Before(w.reset) {
		w = &window{reset: now.Add(l.profile.Window)}
		l.windows[k] = w
	}
	w.count++

	d := Decision{
		Allowed:   w.count <= l.profile.MaxRequests,
		Limit:     l.profile.MaxRequests,
		Remaining: l.profile.MaxRequests - w.count,
		Reset:     w.reset,
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !d.Allowed {
		d.RetryAfter = w.reset.Sub(now)
	}
	return d
}

// Sweep removes every window whose reset time has passed and returns the
// number removed.
func (l *Limiter) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for k, w := range l.windows {
		if !now.Before(w.reset) {
			delete(l.windows, k)
			removed++
		}
	}
	return removed
}

// Run sweeps expired windows every interval until ctx is canceled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.clock.After(interval):
			l.Sweep()
		}
	}
}

// Len returns the number of tracked windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Profile returns the active profile.
func (l *Limiter) Profile() Profile {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.profile
}

// SetProfile replaces the active profile. Existing windows keep their reset
// time; the new ceiling applies from the next request.
func (l *Limiter) SetProfile(p Profile) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.profile = p
}
