package ratelimit

import (
	"sync"
	"time"
)

// Limit configures the sliding-window budget for one provider key.
type Limit struct {
	MaxRequests int
	Window      time.Duration
}

// Decision is the outcome of an admission check. When Allowed is false,
// Wait is how long until the oldest recorded request exits the window.
type Decision struct {
	Allowed bool
	Wait    time.Duration
}

// Governor is a per-provider sliding-window admission controller. Every
// upstream call must pass CanProceed first; callers that are declined wait
// at least the indicated duration before retrying.
//
// Windows are independent per key, so no key can starve another. The
// instance is constructor-injected rather than a package singleton so
// tests can use isolated governors.
type Governor struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

// New creates an empty Governor.
func New() *Governor {
	return &Governor{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// CanProceed purges timestamps older than limit.Window for key, and if the
// remaining count is below limit.MaxRequests records the call and admits
// it. Otherwise it declines with the wait until a slot frees up.
//
// A non-positive MaxRequests or Window disables limiting for the key.
func (g *Governor) CanProceed(key string, limit Limit) Decision {
	if limit.MaxRequests <= 0 || limit.Window <= 0 {
		return Decision{Allowed: true}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cutoff := now.Add(-limit.Window)

	window := g.windows[key]
	// Lazy purge: stamps are appended in order, so find the first one
	// still inside the window.
	keep := 0
	for keep < len(window) && !window[keep].After(cutoff) {
		keep++
	}
	window = window[keep:]

	if len(window) < limit.MaxRequests {
		window = append(window, now)
		g.windows[key] = window
		return Decision{Allowed: true}
	}

	g.windows[key] = window
	wait := window[0].Add(limit.Window).Sub(now)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return Decision{Allowed: false, Wait: wait}
}
