package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClockFiresOncePerPeriod(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	var ticks []time.Time
	stop := c.TickPeriodically(time.Minute, func(now time.Time) {
		ticks = append(ticks, now)
	})

	c.Advance(30 * time.Second)
	assert.Empty(t, ticks)

	c.Advance(3 * time.Minute)
	require.Len(t, ticks, 3)
	assert.Equal(t, start.Add(time.Minute), ticks[0])
	assert.Equal(t, start.Add(3*time.Minute), ticks[2])
	assert.Equal(t, start.Add(3*time.Minute+30*time.Second), c.Now())

	stop()
	c.Advance(10 * time.Minute)
	assert.Len(t, ticks, 3)
}

func TestManualClockSetDoesNotTick(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	fired := 0
	c.TickPeriodically(time.Minute, func(time.Time) { fired++ })

	c.Set(start.Add(time.Hour))
	assert.Equal(t, 0, fired)
	assert.Equal(t, start.Add(time.Hour), c.Now())
}

func TestSystemClockIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NewSystemClock().Now().Location())
}
