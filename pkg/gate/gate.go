// Package gate provides a per-key minimum-interval gate for user intents.
//
// A gate admits an intent for a key only when no intent for the same key is
// still running and none completed within the configured interval. Rejected
// intents are dropped, not queued.
package gate

import (
	"sync"
	"time"
)

// Gate is safe for concurrent use.
type Gate struct {
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	done    time.Time
	running bool
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New creates a Gate. A non-positive interval admits everything.
func New(interval time.Duration, opts ...Option) *Gate {
	g := &Gate{
		interval: interval,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Allow admits an instantaneous intent for key: it is Acquire followed by an
// immediate release.
func (g *Gate) Allow(key string) bool {
	release, ok := g.Acquire(key)
	if ok {
		release()
	}
	return ok
}

// Acquire admits an intent for key and returns a release func that marks it
// completed. The interval counts from completion, so a long-running intent
// blocks its key until it finishes and for the interval after that. Release
// is idempotent.
func (g *Gate) Acquire(key string) (release func(), ok bool) {
	if g.interval <= 0 {
		return func() {}, true
	}
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	e, found := g.entries[key]
	if found && (e.running || now.Sub(e.done) < g.interval) {
		return nil, false
	}
	g.prune(now)
	e = &entry{running: true}
	g.entries[key] = e

	var once sync.Once
	return func() { once.Do(func() { g.complete(e) }) }, true
}

func (g *Gate) complete(e *entry) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	e.running = false
	e.done = now
}

// Reset forgets key so the next intent is admitted, even while an earlier one
// is still running.
func (g *Gate) Reset(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
}

// prune drops idle keys whose interval has elapsed. The caller must hold g.mu.
func (g *Gate) prune(now time.Time) {
	if len(g.entries) < 1024 {
		return
	}
	for k, e := range g.entries {
		if !e.running && now.Sub(e.done) >= g.interval {
			delete(g.entries, k)
		}
	}
}
