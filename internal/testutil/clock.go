// Package testutil holds small deterministic fixtures shared by test code.
package testutil

import (
	"sync"
	"time"
)

// Clock is a thread-safe deterministic time source for tests. Each call to
// Now advances by a fixed step, so revision timestamps within one test are
// distinct but reproducible across runs.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	next  time.Time
	step  time.Duration
}

// NewClock creates a clock starting at start and advancing by step per call.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{start: start, next: start, step: step}
}

// Epoch is the conventional start time for deterministic tests.
func Epoch() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

// Now returns the next timestamp and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

// Reset rewinds the clock to its start time. After Reset, the next call to
// Now returns the same value the first call did.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = c.start
}
