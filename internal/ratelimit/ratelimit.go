package ratelimit

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum spacing between accepted requests.
const DefaultCooldown = 5 * time.Second

// Gate accepts at most one request per cooldown window, process-wide.
// It is safe for concurrent use.
type Gate struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     time.Time
}

// Decision is the outcome of Gate.Allow.
type Decision struct {
	Allowed bool
	// RetryAfter is the whole number of seconds until the next accepted
	// call. Zero when Allowed.
	RetryAfter int
}

// NewGate returns a Gate that has never accepted a request, so the first
// call always passes.
func NewGate(cooldown time.Duration) *Gate {
	return &Gate{cooldown: cooldown}
}

// Allow reports whether a request at now may proceed. An accepted request
// is stamped as the last one before Allow returns.
func (g *Gate) Allow(now time.Time) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.last.IsZero() {
		if elapsed := now.Sub(g.last); elapsed < g.cooldown {
			return Decision{RetryAfter: ceilSeconds(g.cooldown - elapsed)}
		}
	}
	g.last = now
	return Decision{Allowed: true}
}

// Cooldown returns the configured window.
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}

func ceilSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
