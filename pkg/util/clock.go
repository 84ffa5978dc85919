package util

import "time"

// Clock abstracts wall time so order and trade timestamps are controllable
// in tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock returns a constant time, stepping forward by Step on each call
// when Step is non-zero.
type FixedClock struct {
	Time time.Time
	Step time.Duration
}

func (c *FixedClock) Now() time.Time {
	now := c.Time
	c.Time = c.Time.Add(c.Step)
	return now
}
