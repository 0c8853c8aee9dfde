package cfmm

import (
	"sync"
	"time"
)

// Clock supplies the host's current time in unix seconds.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// ManualClock is advanced explicitly, as block time is during replay.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

func NewManualClock(now int64) *ManualClock { return &ManualClock{now: now} }

func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t; it never goes backwards.
func (c *ManualClock) Set(t int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t > c.now {
		c.now = t
	}
}

func (c *ManualClock) Advance(d int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}
