package sandbox

import (
	"sync"
	"sync/atomic"
	"time"
)

// RateCounter is a fixed-window counter used for the per-minute HTTP
// and log rate limits declared in a plugin manifest.
type RateCounter struct {
	limit          uint64
	count          atomic.Uint64
	mu             sync.Mutex
	windowStart    time.Time
	windowDuration time.Duration
}

// NewRateCounter creates a RateCounter allowing limit increments per
// windowDuration.
func NewRateCounter(limit uint64, windowDuration time.Duration) *RateCounter {
	return &RateCounter{
		limit:          limit,
		windowStart:    time.Now(),
		windowDuration: windowDuration,
	}
}

// TryIncrement admits one more call if under the limit for the
// current window, resetting the window if it has elapsed.
func (c *RateCounter) TryIncrement() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.windowStart) >= c.windowDuration {
		c.windowStart = now
		c.count.Store(1)
		return true
	}
	prev := c.count.Add(1) - 1
	return prev < c.limit
}
