package session

import "time"

// Countdown is a pure tick-driven countdown. It holds no goroutines and no
// real clock: a driver (production ticker or a test) calls Tick to advance
// it. Remaining time is monotonically non-increasing, never negative, and
// lands exactly on zero on the tick that reports expiry. Expiry is reported
// at most once; Cancel suppresses it.
type Countdown struct {
	tick      time.Duration
	remaining time.Duration
	expired   bool
	canceled  bool
}

// NewCountdown creates a countdown over budget, advanced in tick steps.
func NewCountdown(budget, tick time.Duration) *Countdown {
	return &Countdown{tick: tick, remaining: budget}
}

// Remaining returns the time left. Zero once expired.
func (c *Countdown) Remaining() time.Duration { return c.remaining }

// Interval returns the tick granularity.
func (c *Countdown) Interval() time.Duration { return c.tick }

// Tick advances the countdown by one step. The boolean is true exactly once,
// on the tick where remaining reaches zero. Ticks after cancellation or
// expiry are no-ops.
func (c *Countdown) Tick() (time.Duration, bool) {
	if c.canceled || c.expired {
		return c.remaining, false
	}

	c.remaining -= c.tick
	if c.remaining <= 0 {
		c.remaining = 0
		c.expired = true
		return 0, true
	}
	return c.remaining, false
}

// Reset rearms the countdown with a fresh budget. Used for per-item
// sub-timers (Read & Select restarts the clock on every word).
func (c *Countdown) Reset(budget time.Duration) {
	c.remaining = budget
	c.expired = false
	c.canceled = false
}

// Cancel stops the countdown: no further ticks take effect and expiry will
// never fire.
func (c *Countdown) Cancel() {
	c.canceled = true
}
