package clock

import (
	"sync"
	"time"
)

// ManualClock only moves when Advance is called. Tickers fire synchronously
// inside Advance, once per elapsed period.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers map[*tickerKey]*manualTicker
}

type tickerKey struct{}

type manualTicker struct {
	handler  func(now time.Time)
	last     time.Time
	duration time.Duration
}

// NewManualClock starts the clock at now.
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{
		now:     now,
		tickers: make(map[*tickerKey]*manualTicker),
	}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set jumps the clock without firing tickers.
func (c *ManualClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Advance moves the clock forward and fires due ticks.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := make([]*manualTicker, 0, len(c.tickers))
	for _, t := range c.tickers {
		tickers = append(tickers, t)
	}
	c.mu.Unlock()

	for _, t := range tickers {
		t.fire(now)
	}
}

func (c *ManualClock) TickPeriodically(d time.Duration, handler func(now time.Time)) func() {
	key := &tickerKey{}
	c.mu.Lock()
	c.tickers[key] = &manualTicker{handler: handler, last: c.now, duration: d}
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.tickers, key)
		c.mu.Unlock()
	}
}

func (t *manualTicker) fire(now time.Time) {
	next := t.last.Add(t.duration)
	for !next.After(now) {
		t.last = next
		t.handler(next)
		next = t.last.Add(t.duration)
	}
}
