package trust

import (
	"math/rand"
	"sync"
	"time"
)

// Action names a rate-limited operation class.
type Action string

const (
	// ActionReport throttles report submission per actor.
	ActionReport Action = "report"
	// ActionWrite throttles generic write endpoints, keyed by IP for
	// anonymous callers.
	ActionWrite Action = "write"
)

// Rule is a fixed-window limit for one action.
type Rule struct {
	Max    int
	Window time.Duration
}

// DefaultRules returns the production limits: 5 reports per 5 minutes per
// actor, 100 generic writes per 15 minutes.
func DefaultRules() map[Action]Rule {
	return map[Action]Rule{
		ActionReport: {Max: 5, Window: 5 * time.Minute},
		ActionWrite:  {Max: 100, Window: 15 * time.Minute},
	}
}

type counterKey struct {
	actor  string
	action Action
}

type counter struct {
	count       int
	windowStart time.Time
}

// RateLimiter keeps fixed-window counters per (actor, action) in process
// memory. Counters are not persisted; a restart forgets them, which is an
// accepted approximation. Safe for concurrent use.
type RateLimiter struct {
	mu       sync.Mutex
	rules    map[Action]Rule
	counters map[counterKey]*counter

	now func() time.Time // test hook
}

// NewRateLimiter builds a limiter with the given rules. Passing nil uses
// DefaultRules.
func NewRateLimiter(rules map[Action]Rule) *RateLimiter {
	if rules == nil {
		rules = DefaultRules()
	}
	return &RateLimiter{
		rules:    rules,
		counters: make(map[counterKey]*counter),
		now:      time.Now,
	}
}

// Allow reports whether the actor may perform the action now, counting the
// attempt. Actions without a configured rule are always allowed. Allow
// never fails: an unknown key simply means "not limited yet".
func (l *RateLimiter) Allow(actor string, action Action) bool {
	rule, ok := l.rules[action]
	if !ok {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// Opportunistic sweep so abandoned keys don't accumulate forever.
	if rand.Intn(100) == 0 {
		l.sweepLocked(now)
	}

	key := counterKey{actor: actor, action: action}
	c, ok := l.counters[key]
	if !ok || now.Sub(c.windowStart) >= rule.Window {
		l.counters[key] = &counter{count: 1, windowStart: now}
		return true
	}

	c.count++
	return c.count <= rule.Max
}

// sweepLocked drops every counter whose window has elapsed. Caller holds mu.
func (l *RateLimiter) sweepLocked(now time.Time) {
	for key, c := range l.counters {
		rule, ok := l.rules[key.action]
		if !ok || now.Sub(c.windowStart) >= rule.Window {
			delete(l.counters, key)
		}
	}
}

// Size returns the number of live counters, for the metrics collector.
func (l *RateLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}
