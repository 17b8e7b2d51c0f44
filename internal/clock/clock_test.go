package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	c := NewFake()
	var fired []string
	c.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "late") })
	c.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "early") })

	c.Advance(99 * time.Millisecond)
	assert.Empty(t, fired)

	c.Advance(time.Second)
	assert.Equal(t, []string{"early", "late"}, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFakeStop(t *testing.T) {
	c := NewFake()
	fired := false
	tm := c.AfterFunc(time.Millisecond, func() { fired = true })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	c.Advance(time.Second)
	assert.False(t, fired)
}

func TestFakeNowTracksTimerDeadline(t *testing.T) {
	c := NewFake()
	start := c.Now()
	var at time.Time
	c.AfterFunc(250*time.Millisecond, func() { at = c.Now() })
	c.Advance(time.Second)

	assert.Equal(t, 250*time.Millisecond, at.Sub(start))
	assert.Equal(t, time.Second, c.Now().Sub(start))
}

func TestFakeChainedTimers(t *testing.T) {
	c := NewFake()
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 3 {
			c.AfterFunc(100*time.Millisecond, tick)
		}
	}
	c.AfterFunc(100*time.Millisecond, tick)
	c.Advance(time.Second)
	assert.Equal(t, 3, count)
}

func TestRealClock(t *testing.T) {
	done := make(chan struct{})
	Real().AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("real timer never fired")
	}
}
