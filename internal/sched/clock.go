package sched

import (
	"sync"
	"time"
)

// ManualClock is a Clock driven by explicit Advance calls. It exists for
// tests and the demo pipeline; the production daemon uses RealClock.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

// NewManualClock creates a manual clock starting at the given time.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward and fires every ticker whose period has
// elapsed. Each ticker fires at most once per Advance call.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*manualTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		t.maybeFire(now)
	}
}

// NewTicker registers a ticker on the manual clock.
func (c *ManualClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &manualTicker{
		clock:  c,
		period: d,
		nextAt: c.now.Add(d),
		ch:     make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, t)
	return t
}

type manualTicker struct {
	clock  *ManualClock
	period time.Duration

	mu      sync.Mutex
	nextAt  time.Time
	stopped bool
	ch      chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *manualTicker) maybeFire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || now.Before(t.nextAt) {
		return
	}
	t.nextAt = now.Add(t.period)

	select {
	case t.ch <- now:
	default:
	}
}

var _ Clock = (*ManualClock)(nil)
