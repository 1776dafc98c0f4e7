// internal/runtime/clock.go
package runtime

import (
	"sync/atomic"
	"time"
)

// Clock supplies the host time, unix seconds.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// FixedClock is a manually driven clock for tests and scenarios.
type FixedClock struct {
	now atomic.Int64
}

func NewFixedClock(unix int64) *FixedClock {
	c := &FixedClock{}
	c.now.Store(unix)
	return c
}

func (c *FixedClock) Now() int64 { return c.now.Load() }

func (c *FixedClock) Set(unix int64) { c.now.Store(unix) }

// Advance moves the clock forward by d seconds and returns the new time.
func (c *FixedClock) Advance(d int64) int64 { return c.now.Add(d) }
