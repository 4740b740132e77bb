package clock

import (
	"sync"
	"time"
)

// Clock is the injectable source of "now" and of periodic ticks.
type Clock interface {
	Now() time.Time
	// TickPeriodically calls handler every d until the returned stop func runs.
	TickPeriodically(d time.Duration, handler func(now time.Time)) func()
}

// SystemClock reads wall time.
type SystemClock struct{}

// NewSystemClock returns a wall clock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func (SystemClock) TickPeriodically(d time.Duration, handler func(now time.Time)) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case t := <-ticker.C:
				handler(t.UTC())
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
