// fake_clock.go - Manually advanced clock for deterministic playback tests
package testutil

import (
	"sync"
	"time"

	"github.com/code-animator/backend/internal/playback"
)

// FakeClock implements playback.Clock. Callbacks only fire from Advance.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *FakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

// NewFakeClock creates a clock at time zero with no pending timers.
func NewFakeClock() *FakeClock {
	return &FakeClock{}
}

// AfterFunc schedules f to run once the clock has advanced by d.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) playback.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, firing due callbacks in deadline order.
// Callbacks run without the clock lock held so they may schedule new timers.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

// AdvanceStale runs the callbacks of stopped timers, simulating callbacks that
// were already in flight when Stop was called.
func (c *FakeClock) AdvanceStale() int {
	c.mu.Lock()
	var stale []func()
	for _, t := range c.timers {
		if t.stopped && !t.fired {
			t.fired = true
			stale = append(stale, t.f)
		}
	}
	c.mu.Unlock()

	for _, f := range stale {
		f()
	}
	return len(stale)
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// NextDeadline returns how long until the earliest pending timer fires.
func (c *FakeClock) NextDeadline() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var best *fakeTimer
	for _, t := range c.timers {
		if t.stopped || t.fired {
			continue
		}
		if best == nil || t.at < best.at {
			best = t
		}
	}
	if best == nil {
		return 0, false
	}
	return best.at - c.now, true
}

func (c *FakeClock) nextDueLocked(target time.Duration) *fakeTimer {
	var best *fakeTimer
	for _, t := range c.timers {
		if t.stopped || t.fired || t.at > target {
			continue
		}
		if best == nil || t.at < best.at {
			best = t
		}
	}
	return best
}

var _ playback.Clock = (*FakeClock)(nil)
